package config

import (
	"github.com/spf13/viper"
)

type Evidence struct {
	// Path to the static certificate background, 1280x720 PNG.
	// Missing template is a deployment error, the worker refuses to start.
	TemplatePath string

	// Optional TTF font, the embedded Go Regular face is used when empty
	FontPath string

	// Font size in points
	FontSize float64
}

func setEvidenceDefaults() {
	viper.SetDefault("Evidence.TemplatePath", "public/imgs/recy-report-template.png")
	viper.SetDefault("Evidence.FontPath", "")
	viper.SetDefault("Evidence.FontSize", "24")
}
