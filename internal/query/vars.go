package query

import (
	"mailsink/internal/mailstore"
	"mailsink/pkg/cel"
)

// Vars maps a record onto the variables visible to CEL filter expressions.
func Vars(r mailstore.Record) map[string]interface{} {
	headers := make(map[string][]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Name] = append(headers[h.Name], h.Value)
	}

	attachments := make([]map[string]interface{}, len(r.Attachments))
	for i, a := range r.Attachments {
		attachments[i] = map[string]interface{}{
			"filename":     a.Filename,
			"content_type": a.ContentType,
			"size":         a.Size,
		}
	}

	return map[string]interface{}{
		cel.VarID:          r.ID,
		cel.VarFrom:        r.From,
		cel.VarTo:          nonNil(r.To),
		cel.VarCc:          nonNil(r.Cc),
		cel.VarSubject:     r.Subject,
		cel.VarText:        r.Text,
		cel.VarHTML:        r.HTML,
		cel.VarDate:        r.Date,
		cel.VarSize:        r.Size,
		cel.VarHeaders:     headers,
		cel.VarAttachments: attachments,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
