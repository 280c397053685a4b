// Package export renders a design packet as one self-contained HTML page.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"

	"designforge/internal/types"
)

const notGenerated = "Not generated."

var page = template.Must(template.New("packet").Funcs(template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return "n/a"
		}
		return *s
	},
	"qty": func(q *int) string {
		if q == nil {
			return "n/a"
		}
		return fmt.Sprint(*q)
	},
}).Parse(pageTemplate))

type view struct {
	Spec        *types.ProductSpecification
	Summary     template.HTML
	Constraints []constraintView
	Images      []imageView
	Issues      []string
	Code        *types.GeneratedCode
	Explanation template.HTML
	AudioURL    template.URL
	VideoURL    template.URL
	Missing     string
}

type constraintView struct {
	Label string
	Value *string
}

type imageView struct {
	Title string
	Label string
	Src   template.URL
}

// HTML renders packet. It performs no network access; images and audio are
// embedded as the data URLs already carried by the packet.
func HTML(packet *types.DesignPacket) ([]byte, error) {
	if packet == nil || packet.Specification == nil {
		return nil, fmt.Errorf("packet has no specification")
	}
	spec := packet.Specification
	v := view{
		Spec:    spec,
		Issues:  packet.SelfCheck.Issues,
		Code:    packet.Code,
		Missing: notGenerated,
	}

	var err error
	if v.Summary, err = markdown(spec.Summary); err != nil {
		return nil, err
	}
	if packet.Code != nil {
		if v.Explanation, err = markdown(packet.Code.Explanation); err != nil {
			return nil, err
		}
	}
	if c := spec.Constraints; c != nil {
		v.Constraints = []constraintView{
			{"Environment", c.Environment},
			{"Size limits", c.SizeLimits},
			{"Weight limits", c.WeightLimits},
			{"Power", c.Power},
			{"Safety", c.Safety},
			{"Budget", c.Budget},
		}
	}
	for _, img := range packet.Images {
		src, ok := safeURL(img.DataURL, "data:image/")
		if !ok {
			continue
		}
		v.Images = append(v.Images, imageView{Title: img.Title, Label: img.DiagramType.Label(), Src: src})
	}
	v.AudioURL, _ = safeURL(packet.AudioURL, "data:audio/")
	v.VideoURL, _ = safeURL(packet.VideoURL, "")

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("render packet: %w", err)
	}
	return buf.Bytes(), nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Filename is the download name for the packet's export.
func Filename(packet *types.DesignPacket) string {
	name := ""
	if packet != nil && packet.Specification != nil {
		name = packet.Specification.ProductName
	}
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "design"
	}
	return slug + ".html"
}

// markdown renders model-written prose. Raw HTML in the source is dropped.
func markdown(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// safeURL admits data URLs with the given prefix and http(s) links.
func safeURL(raw, dataPrefix string) (template.URL, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", false
	case dataPrefix != "" && strings.HasPrefix(raw, dataPrefix):
		return template.URL(raw), true
	case strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "http://"):
		return template.URL(raw), true
	default:
		return "", false
	}
}
