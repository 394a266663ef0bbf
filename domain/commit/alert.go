package commit

import (
	"fmt"
	"html"
	"rank-annotation-backend/logging"
	"rank-annotation-backend/utils"
	emailutils "rank-annotation-backend/utils/email"
	"strings"
)

const verificationAlertHTMLTemplate = `
<h1>标注写入校验失败</h1>
<p>句子 ID：%s</p>
<p>行号：%d</p>
<p>轮次：%d</p>

<h2>提交内容</h2>
<p>排序：%s</p>
<p>评论：%s</p>

<h2>回读内容</h2>
<p>排序：%s</p>
<p>评论：%s</p>

<p></p>
<p>表格接受了写入但回读结果不一致，请检查表格是否被其他程序修改</p>
`

/*
EmailAlerter 在校验失败时异步给运维人员发送邮件，发送失败只记录日志。
*/
type EmailAlerter struct {
	to   string
	send func(email, subject, htmlContent string) error
}

func NewEmailAlerter(to string) *EmailAlerter {
	return &EmailAlerter{
		to:   to,
		send: emailutils.SendHtml,
	}
}

func (a *EmailAlerter) AlertVerificationFailed(submission *Submission, result *Result) {
	content := renderVerificationAlert(submission, result)
	go func() {
		err := a.send(a.to, "【翻译排序标注】写入校验失败", content)
		if err != nil {
			err = utils.WrapErrorf(err, "send email to [%s] fail", a.to)
			logging.Default().WithError(err).Errorf("alert verification failure of sentence [%s] fail", submission.ID)
		}
	}()
}

func renderVerificationAlert(submission *Submission, result *Result) string {
	return fmt.Sprintf(verificationAlertHTMLTemplate,
		html.EscapeString(submission.ID),
		result.Row,
		int(result.Round),
		html.EscapeString(strings.Join(submission.Ranking, ",")),
		html.EscapeString(submission.Comment),
		html.EscapeString(strings.Join(result.VerifiedRanking, ",")),
		html.EscapeString(result.VerifiedComment),
	)
}
