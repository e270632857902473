// Package classifier maps a window's feature vector to an event class and a
// confidence. Both deployed models are fixed; nothing here learns.
package classifier

import (
	"fmt"

	"github.com/banshee-data/luma/internal/detect"
	"github.com/banshee-data/luma/internal/features"
)

// Model selects a class from a feature vector. Implementations are pure.
type Model interface {
	Classify(v *features.Vector) detect.EventClass
	Name() string
}

// Classifier pairs a Model with the class confidence heuristics.
type Classifier struct {
	model Model
}

// New returns a Classifier using model.
func New(model Model) *Classifier {
	return &Classifier{model: model}
}

// ForName returns a Classifier for a configured model name.
func ForName(name string) (*Classifier, error) {
	switch name {
	case "", Heuristic{}.Name():
		return New(Heuristic{}), nil
	case GeneratedTree{}.Name():
		return New(GeneratedTree{}), nil
	default:
		return nil, fmt.Errorf("unknown classifier model %q", name)
	}
}

// Model returns the underlying model.
func (c *Classifier) Model() Model {
	return c.model
}

// Predict classifies v and scores the chosen class. Confidence is computed
// after the class is fixed and never feeds back into selection.
func (c *Classifier) Predict(v *features.Vector) (detect.EventClass, float32) {
	class := c.model.Classify(v)
	return class, Confidence(v, class)
}
