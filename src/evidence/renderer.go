package evidence

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"regexp"

	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/logger"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Certificate canvas, matches the template image
const (
	canvasWidth  = 1280
	canvasHeight = 720

	labelColor = "#173C09"
	valueColor = "#0D4075"
)

// Right column lists only attributes carrying a weight
var weightValue = regexp.MustCompile(`(?i)kg`)

// Draws certificates onto the static template.
// Template and font load once, Render is safe for concurrent use.
type Renderer struct {
	log      *logrus.Entry
	template image.Image
	face     font.Face
}

func NewRenderer(config *config.Config) (self *Renderer, err error) {
	self = new(Renderer)
	self.log = logger.NewSublogger("renderer")

	self.template, err = gg.LoadPNG(config.Evidence.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate template %s: %w", config.Evidence.TemplatePath, err)
	}

	fontData := goregular.TTF
	if config.Evidence.FontPath != "" {
		fontData, err = os.ReadFile(config.Evidence.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load font %s: %w", config.Evidence.FontPath, err)
		}
	}
	parsedFont, err := truetype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	self.face = truetype.NewFace(parsedFont, &truetype.Options{Size: config.Evidence.FontSize})

	return
}

// Render draws one certificate: issuer and report number on the left,
// weight attributes on the right, over the template background.
func (self *Renderer) Render(metadata *Metadata, reportId, email string) image.Image {
	dc := gg.NewContext(canvasWidth, canvasHeight)
	dc.DrawImage(self.template, 0, 0)
	dc.SetFontFace(self.face)

	baseY := float64(canvasHeight)/2 + 20

	// Left column, label and value lines alternating
	leftX := 300.0
	leftY := baseY - 50
	spacing := 40.0

	dc.SetHexColor(labelColor)
	dc.DrawString("Issued by:", leftX, leftY)
	dc.SetHexColor(valueColor)
	dc.DrawString(email, leftX, leftY+spacing)
	dc.SetHexColor(labelColor)
	dc.DrawString("Report Number:", leftX, leftY+spacing*2)
	dc.SetHexColor(valueColor)
	dc.DrawString(reportId, leftX, leftY+spacing*3)

	// Right column, one label/value block per weight attribute,
	// vertically centered around baseY
	var weights []Attribute
	for _, attribute := range metadata.Attributes {
		if attribute.Value != "" && weightValue.MatchString(attribute.Value) {
			weights = append(weights, attribute)
		}
	}

	rightX := float64(canvasWidth) - 500
	y := baseY - float64(len(weights))*(spacing/2)
	for _, attribute := range weights {
		dc.SetHexColor(labelColor)
		dc.DrawString(attribute.TraitType, rightX, y)
		dc.SetHexColor(valueColor)
		dc.DrawString(attribute.Value, rightX, y+30)
		y += spacing * 2
	}

	return dc.Image()
}

func EncodePNG(img image.Image) (data []byte, err error) {
	var buf bytes.Buffer
	err = png.Encode(&buf, img)
	if err != nil {
		return
	}
	return buf.Bytes(), nil
}
