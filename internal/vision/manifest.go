// Package vision is the gateway to the food classification and calorie
// regression models. Each model is described by a manifest and served by a
// remote inference endpoint; this package prepares images, calls the
// endpoints and interprets their outputs.
package vision

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Kind is the type of output a model produces.
type Kind string

const (
	KindClassification Kind = "classification"
	KindRegression     Kind = "regression"
)

// DefaultImageSize is the square input resolution used when a manifest does
// not set one.
const DefaultImageSize = 256

// Manifest describes a served model.
type Manifest struct {
	Name      string   `mapstructure:"name" validate:"required"`
	Kind      Kind     `mapstructure:"kind" validate:"required,oneof=classification regression"`
	Endpoint  string   `mapstructure:"endpoint" validate:"required,url"`
	ImageSize int      `mapstructure:"image_size" validate:"min=1,max=4096"`
	Classes   []string `mapstructure:"classes" validate:"required_if=Kind classification,dive,required"`
}

var validate = validator.New()

// LoadManifest reads and validates a JSON or YAML model manifest.
func LoadManifest(path string) (*Manifest, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("image_size", DefaultImageSize)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read model manifest %s: %w", path, err)
	}

	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("failed to parse model manifest %s: %w", path, err)
	}

	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid model manifest %s: %w", path, err)
	}

	return &m, nil
}

// Model is a loaded manifest bound to its predictor. Models are read-only
// after loading and safe for concurrent use.
type Model struct {
	Manifest  Manifest
	predictor Predictor
}

// NewModel binds a manifest to a predictor.
func NewModel(m Manifest, p Predictor) *Model {
	return &Model{Manifest: m, predictor: p}
}

// LoadModel loads the manifest at path, checks that it describes a model of
// the wanted kind and binds it to an HTTP predictor using client.
func LoadModel(path string, want Kind, client *http.Client) (*Model, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	if m.Kind != want {
		return nil, fmt.Errorf("model manifest %s: kind %q, want %q", path, m.Kind, want)
	}

	return NewModel(*m, NewHTTPPredictor(m.Endpoint, client)), nil
}
