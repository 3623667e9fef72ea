package describe

import (
	"github.com/beevik/etree"

	"libitip/itip"
)

// sentence renders one remark either as plain text or as a well-formed
// HTML fragment carrying a CSS class per sentence family.
type sentence struct {
	class string
	text  string
}

func (s *sentence) Render(format itip.RenderFormat) string {
	if format != itip.FormatHTML {
		return s.text
	}
	doc := etree.NewDocument()
	span := doc.CreateElement("span")
	span.CreateAttr("class", "itip "+s.class)
	span.SetText(s.text)
	out, err := doc.WriteToString()
	if err != nil {
		// etree only fails on writer errors, which a string writer
		// cannot produce; fall back to the raw text regardless.
		return s.text
	}
	return out
}
