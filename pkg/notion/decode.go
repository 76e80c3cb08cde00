package notion

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// ColumnType is the closed set of schema column types the decoder understands.
type ColumnType string

const (
	ColumnTitle       ColumnType = "title"
	ColumnText        ColumnType = "text"
	ColumnPerson      ColumnType = "person"
	ColumnCheckbox    ColumnType = "checkbox"
	ColumnDate        ColumnType = "date"
	ColumnSelect      ColumnType = "select"
	ColumnMultiSelect ColumnType = "multi_select"
	ColumnEmail       ColumnType = "email"
	ColumnPhoneNumber ColumnType = "phone_number"
	ColumnURL         ColumnType = "url"
	ColumnNumber      ColumnType = "number"
	ColumnRelation    ColumnType = "relation"
	ColumnFile        ColumnType = "file"
)

// Unsupported is returned for any column type outside the closed set above.
// Unknown types degrade to this marker; they never fail the row.
const Unsupported = "Not supported"

// relationGlyph is the link glyph a relation fragment carries as its text.
const relationGlyph = "‣"

const assetHost = "https://www.notion.so"

// Decode turns one raw rich value into a typed Go value according to the
// declared column type. It is pure and total: malformed or missing inner
// fields yield the type's empty shape, never an error. Non-numeric number
// cells decode to nil (the JSON NaN-equivalent).
func Decode(val RichValue, typ ColumnType, owner *Block) any {
	switch typ {
	case ColumnText:
		return formattedText(val)

	case ColumnTitle:
		return val.PlainText()

	case ColumnCheckbox:
		return len(val) > 0 && val[0].Text == "Yes"

	case ColumnDate:
		if len(val) > 0 && len(val[0].Marks) > 0 && val[0].Marks[0].Tag == "d" {
			var d DateValue
			if err := json.Unmarshal(val[0].Marks[0].Arg, &d); err == nil {
				return &d
			}
		}
		return ""

	case ColumnSelect, ColumnEmail, ColumnPhoneNumber, ColumnURL:
		if len(val) == 0 {
			return ""
		}
		return val[0].Text

	case ColumnMultiSelect:
		if len(val) == 0 || val[0].Text == "" {
			return []string{}
		}
		return strings.Split(val[0].Text, ",")

	case ColumnNumber:
		if len(val) > 0 {
			if n, err := strconv.ParseFloat(val[0].Text, 64); err == nil {
				return n
			}
		}
		return nil

	case ColumnPerson:
		ids := []string{}
		for _, f := range val {
			if len(f.Marks) > 0 {
				if id := f.Marks[0].StringArg(); id != "" {
					ids = append(ids, id)
				}
			}
		}
		return ids

	case ColumnRelation:
		ids := []string{}
		for _, f := range val {
			if f.Text != relationGlyph || len(f.Marks) == 0 {
				continue
			}
			if id := f.Marks[0].StringArg(); id != "" {
				ids = append(ids, id)
			}
		}
		return ids

	case ColumnFile:
		return decodeFiles(val, owner)

	default:
		return Unsupported
	}
}

// decodeFiles handles both stored assets (signed-URL path form) and plain
// external links (sole fragment without a structured mark).
func decodeFiles(val RichValue, owner *Block) []FileLink {
	if len(val) == 0 {
		return []FileLink{}
	}

	if len(val[0].Marks) == 0 {
		return []FileLink{{Name: val[0].Text, URL: val[0].Text}}
	}

	ownerID := ""
	if owner != nil {
		ownerID = owner.ID
	}

	files := []FileLink{}
	for _, f := range val {
		if len(f.Marks) == 0 {
			continue
		}
		rawURL := f.Marks[0].StringArg()
		if rawURL == "" {
			continue
		}
		files = append(files, FileLink{Name: f.Text, URL: signableURL(rawURL, ownerID), RawURL: rawURL})
	}
	return files
}

// signableURL prefixes the stored path with the asset host (escaping
// non-path-shaped URLs) and appends the cache-busting query parameters the
// upstream image proxy expects.
func signableURL(rawURL, blockID string) string {
	var full string
	if strings.HasPrefix(rawURL, "/image") {
		full = assetHost + rawURL
	} else {
		full = assetHost + "/image/" + url.PathEscape(rawURL)
	}

	u, err := url.Parse(full)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("table", "block")
	q.Set("id", blockID)
	q.Set("cache", "v2")
	u.RawQuery = q.Encode()
	return u.String()
}

// formattedText renders a rich value as inline HTML. Marks are applied
// right-to-left over each fragment's mark list, so the first listed mark ends
// up outermost.
func formattedText(val RichValue) string {
	var b strings.Builder
	for _, f := range val {
		s := f.Text
		for i := len(f.Marks) - 1; i >= 0; i-- {
			m := f.Marks[i]
			switch m.Tag {
			case "b":
				s = "<b>" + s + "</b>"
			case "i":
				s = "<em>" + s + "</em>"
			case "s":
				s = "<s>" + s + "</s>"
			case "c":
				s = `<code class="notion-inline-code">` + s + `</code>`
			case "h":
				s = `<span class="notion-` + m.StringArg() + `">` + s + `</span>`
			case "a":
				s = `<a class="notion-link" href="` + m.StringArg() + `">` + s + `</a>`
			}
		}
		b.WriteString(s)
	}
	return b.String()
}
