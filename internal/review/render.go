package review

import (
	"fmt"
	"net/url"
	"strings"
)

// Links は査読依頼の承諾・辞退リンクのベースURL。
type Links struct {
	AcceptURL string
	RejectURL string
}

// ReviewLink はベースURLに査読者IDと論文IDのクエリを付けたリンクを返す。
// クエリは常に reviewerId, authorWorkId の順に並ぶ。
func ReviewLink(base, reviewerID, workID string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "reviewerId=" + url.QueryEscape(reviewerID) + "&authorWorkId=" + url.QueryEscape(workID)
}

// RenderJob は (論文, 査読者) の組から送信ジョブを組み立てる。
// 出力は引数だけで決まり、同じ入力からは常に同じメッセージが得られる。
func RenderJob(trackID string, work AuthorWork, reviewer Member, nc NotifyContext, links Links) NotificationJob {
	accept := ReviewLink(links.AcceptURL, reviewer.ID, work.ID)
	reject := ReviewLink(links.RejectURL, reviewer.ID, work.ID)

	greeting := "Dear Reviewer,"
	if reviewer.Name != "" {
		greeting = fmt.Sprintf("Dear %s,", reviewer.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", work.Title)
	fmt.Fprintf(&b, "Paper ID: %s\n", work.ID)
	fmt.Fprintf(&b, "Author: %s\n", work.Name)
	fmt.Fprintf(&b, "Last date of review: %s\n", nc.Date)
	fmt.Fprintf(&b, "Abstract: %s\n\n", work.Abstract)
	fmt.Fprintf(&b, "%s\n\n", greeting)
	b.WriteString("Thank you for your willingness to serve as a reviewer. ")
	b.WriteString("You are invited to review the paper described above. ")
	b.WriteString("Please let us know whether you can take it on by using one of the links below before the last date of review.\n\n")
	fmt.Fprintf(&b, "Accept Review: %s\n", accept)
	fmt.Fprintf(&b, "Reject Review: %s\n\n", reject)
	b.WriteString("Best regards,\n")
	fmt.Fprintf(&b, "send by: %s", nc.SenderName)
	if nc.Designation != "" {
		fmt.Fprintf(&b, "\n%s", nc.Designation)
	}

	return NotificationJob{
		TrackID:    trackID,
		Work:       work,
		Reviewer:   reviewer,
		AcceptLink: accept,
		RejectLink: reject,
		Message: Message{
			To:      reviewer.Email,
			ToName:  reviewer.Name,
			Subject: "Request to review the following paper: " + work.Title,
			Body:    b.String(),
		},
	}
}
