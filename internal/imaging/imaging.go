// Package imaging renders promotional images for posts.
//
// The template renderer is pure local drawing keyed by a topic-derived color
// scheme; it never fails and serves as the fallback when AI image generation
// is unavailable.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Image dimension constants (LinkedIn share format)
const (
	// DefaultWidth is the rendered image width in pixels
	DefaultWidth = 1200
	// DefaultHeight is the rendered image height in pixels
	DefaultHeight = 630
	// DefaultSchemeName is used when no topic keyword matches
	DefaultSchemeName = "professional_navy"
)

// Scheme is a professional color scheme for template images.
type Scheme struct {
	Name      string
	Primary   color.RGBA
	Secondary color.RGBA
	Accent    color.RGBA
	Overlay   color.RGBA
}

// schemes mirrors the color palette table keyed by theme name.
var schemes = map[string]Scheme{
	"tech_blue":         {Name: "tech_blue", Primary: hexRGBA(0x1e40af), Secondary: hexRGBA(0x3b82f6), Accent: hexRGBA(0x60a5fa), Overlay: hexRGBA(0x1e3a8a)},
	"business_green":    {Name: "business_green", Primary: hexRGBA(0x065f46), Secondary: hexRGBA(0x059669), Accent: hexRGBA(0x10b981), Overlay: hexRGBA(0x064e3b)},
	"innovation_purple": {Name: "innovation_purple", Primary: hexRGBA(0x6b21a8), Secondary: hexRGBA(0x9333ea), Accent: hexRGBA(0xc084fc), Overlay: hexRGBA(0x581c87)},
	"morocco_red":       {Name: "morocco_red", Primary: hexRGBA(0x991b1b), Secondary: hexRGBA(0xdc2626), Accent: hexRGBA(0xef4444), Overlay: hexRGBA(0x7f1d1d)},
	"modern_orange":     {Name: "modern_orange", Primary: hexRGBA(0xc2410c), Secondary: hexRGBA(0xea580c), Accent: hexRGBA(0xfb923c), Overlay: hexRGBA(0x9a3412)},
	"professional_navy": {Name: "professional_navy", Primary: hexRGBA(0x1e3a8a), Secondary: hexRGBA(0x2563eb), Accent: hexRGBA(0x3b82f6), Overlay: hexRGBA(0x1e293b)},
	"creative_teal":     {Name: "creative_teal", Primary: hexRGBA(0x0f766e), Secondary: hexRGBA(0x14b8a6), Accent: hexRGBA(0x5eead4), Overlay: hexRGBA(0x134e4a)},
	"elegant_gold":      {Name: "elegant_gold", Primary: hexRGBA(0x92400e), Secondary: hexRGBA(0xd97706), Accent: hexRGBA(0xfbbf24), Overlay: hexRGBA(0x78350f)},
}

// schemeKeywords routes topic keywords to theme names. Checked in order;
// first match wins.
var schemeKeywords = []struct {
	scheme   string
	keywords []string
}{
	{"tech_blue", []string{"tech", "digital", "ai", "software", "data", "cyber"}},
	{"business_green", []string{"business", "economy", "market", "finance", "trade"}},
	{"morocco_red", []string{"morocco", "maroc", "maghreb", "rabat", "casablanca"}},
	{"innovation_purple", []string{"innovation", "startup", "entrepreneur", "creative"}},
	{"modern_orange", []string{"energy", "power", "solar", "renewable"}},
	{"creative_teal", []string{"design", "art", "media"}},
	{"elegant_gold", []string{"luxury", "premium", "exclusive", "elite"}},
}

// hexRGBA converts a 0xRRGGBB value to an opaque RGBA color.
func hexRGBA(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// SelectScheme picks a color scheme by matching topic keywords, defaulting
// to professional navy.
func SelectScheme(topic string) Scheme {
	lower := strings.ToLower(topic)
	for _, entry := range schemeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return schemes[entry.scheme]
			}
		}
	}
	return schemes[DefaultSchemeName]
}

// TemplateRenderer draws gradient template images.
type TemplateRenderer struct {
	width  int
	height int
}

// NewTemplateRenderer creates a renderer at the standard share dimensions.
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{width: DefaultWidth, height: DefaultHeight}
}

// Render draws a template image for the given title/summary, themed by the
// topic. It never fails.
func (r *TemplateRenderer) Render(title, summary, topic string) []byte {
	scheme := SelectScheme(topic)
	slog.Debug("Rendering template image", "scheme", scheme.Name, "title", title)

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	r.drawGradient(img, scheme)
	r.drawOverlayBand(img, scheme)
	r.drawText(img, title, summary)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// Encoding to memory cannot realistically fail; keep the contract.
		slog.Error("Template image encoding failed", "error", err)
		return []byte{}
	}
	return buf.Bytes()
}

// drawGradient fills the canvas with a vertical three-stop gradient.
func (r *TemplateRenderer) drawGradient(img *image.RGBA, s Scheme) {
	for y := 0; y < r.height; y++ {
		ratio := float64(y) / float64(r.height)
		var c color.RGBA
		if ratio < 0.5 {
			c = lerp(s.Primary, s.Secondary, ratio*2)
		} else {
			c = lerp(s.Secondary, s.Accent, (ratio-0.5)*2)
		}
		for x := 0; x < r.width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawOverlayBand darkens the text area for contrast.
func (r *TemplateRenderer) drawOverlayBand(img *image.RGBA, s Scheme) {
	top := r.height / 4
	bottom := r.height * 3 / 4
	for y := top; y < bottom; y++ {
		for x := 0; x < r.width; x++ {
			base := img.RGBAAt(x, y)
			img.SetRGBA(x, y, lerp(base, s.Overlay, 0.55))
		}
	}
}

// drawText renders the wrapped title and summary in white.
func (r *TemplateRenderer) drawText(img *image.RGBA, title, summary string) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}

	y := r.height/4 + 60
	for _, line := range wrap(title, 60) {
		drawer.Dot = fixed.P(80, y)
		drawer.DrawString(line)
		y += 26
	}
	y += 20
	for _, line := range wrap(summary, 90) {
		drawer.Dot = fixed.P(80, y)
		drawer.DrawString(line)
		y += 20
	}
}

// lerp linearly interpolates between two colors.
func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

// wrap splits text into lines of at most width characters, breaking on words.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}
