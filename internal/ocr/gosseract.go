//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"
)

func init() {
	Register("gosseract", func(o Options) (Engine, error) { return NewGosseract(o), nil })
}

// Gosseract uses libtesseract through cgo.
type Gosseract struct {
	language string
	dpi      int
}

// NewGosseract creates a libtesseract-backed engine.
func NewGosseract(o Options) *Gosseract {
	g := &Gosseract{language: o.Language, dpi: o.DPI}
	if g.language == "" {
		g.language = "eng"
	}
	return g
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(g.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if g.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(g.dpi)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
