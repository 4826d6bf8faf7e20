package viewer

import (
	"encoding/json"
	stderrors "errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/view"
)

// EventType names a host input.
type EventType string

// Event types.
const (
	PointerDown EventType = "pointerdown"
	PointerMove EventType = "pointermove"
	PointerUp   EventType = "pointerup"
	Blur        EventType = "blur"
	Wheel       EventType = "wheel"
	ZoomIn      EventType = "zoomin"
	ZoomOut     EventType = "zoomout"
	SetMode     EventType = "mode"
	Select      EventType = "select"
	Resize      EventType = "resize"
	Orbit       EventType = "orbit"
	Retry       EventType = "retry"
)

// Event is one input from a host. Coordinates are viewport pixels.
type Event struct {
	Type   EventType `json:"type" validate:"required,oneof=pointerdown pointermove pointerup blur wheel zoomin zoomout mode select resize orbit retry"`
	X      float64   `json:"x,omitempty" validate:"finite"`
	Y      float64   `json:"y,omitempty" validate:"finite"`
	DX     float64   `json:"dx,omitempty" validate:"finite"`
	DY     float64   `json:"dy,omitempty" validate:"finite"`
	Mode   string    `json:"mode,omitempty" validate:"required_if=Type mode"`
	ID     string    `json:"id,omitempty"`
	Width  float64   `json:"width,omitempty" validate:"required_if=Type resize,gte=0,finite"`
	Height float64   `json:"height,omitempty" validate:"required_if=Type resize,gte=0,finite"`
}

// Point returns the event position.
func (e Event) Point() view.Point { return view.Point{X: e.X, Y: e.Y} }

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})
}

// Validate checks the event fields against its type.
func (e Event) Validate() error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.New(errors.ErrCodeInvalidEvent, "invalid %s event: %s failed %s", e.Type, fe.Field(), fe.Tag())
	}
	return errors.Wrap(errors.ErrCodeInvalidEvent, err, "invalid event")
}

// ParseEvent decodes and validates a JSON event.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, errors.Wrap(errors.ErrCodeInvalidEvent, err, "decode event")
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
