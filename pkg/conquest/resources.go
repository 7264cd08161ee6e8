package conquest

// ResourceType is the output category of a province.
type ResourceType string

const (
	Food      ResourceType = "food"
	Materials ResourceType = "materials"
	Energy    ResourceType = "energy"
)

// Resources is a player's stockpile. No field is ever negative once it has
// passed through a registry mutator.
type Resources struct {
	Money     float64 `json:"money"`
	Food      float64 `json:"food"`
	Materials float64 `json:"materials"`
	Energy    float64 `json:"energy"`
	Manpower  float64 `json:"manpower"`
}

// Add returns the field-wise sum of r and o.
func (r Resources) Add(o Resources) Resources {
	return Resources{
		Money:     r.Money + o.Money,
		Food:      r.Food + o.Food,
		Materials: r.Materials + o.Materials,
		Energy:    r.Energy + o.Energy,
		Manpower:  r.Manpower + o.Manpower,
	}
}

// Scale multiplies every field by f.
func (r Resources) Scale(f float64) Resources {
	return Resources{
		Money:     r.Money * f,
		Food:      r.Food * f,
		Materials: r.Materials * f,
		Energy:    r.Energy * f,
		Manpower:  r.Manpower * f,
	}
}

// Negate returns -r, used to turn a cost into a delta.
func (r Resources) Negate() Resources {
	return r.Scale(-1)
}

// Covers reports whether r holds at least cost in every field.
func (r Resources) Covers(cost Resources) bool {
	return r.Money >= cost.Money &&
		r.Food >= cost.Food &&
		r.Materials >= cost.Materials &&
		r.Energy >= cost.Energy &&
		r.Manpower >= cost.Manpower
}

// Of returns the amount held of a province resource type.
func (r Resources) Of(t ResourceType) float64 {
	switch t {
	case Food:
		return r.Food
	case Materials:
		return r.Materials
	case Energy:
		return r.Energy
	}
	return 0
}

func (r *Resources) credit(t ResourceType, amount float64) {
	switch t {
	case Food:
		r.Food += amount
	case Materials:
		r.Materials += amount
	case Energy:
		r.Energy += amount
	}
}

// clamped zeroes negative fields and reports whether any were negative.
func (r Resources) clamped() (Resources, bool) {
	hit := false
	fix := func(v *float64) {
		if *v < 0 {
			*v = 0
			hit = true
		}
	}
	fix(&r.Money)
	fix(&r.Food)
	fix(&r.Materials)
	fix(&r.Energy)
	fix(&r.Manpower)
	return r, hit
}

func validResourceType(t ResourceType) bool {
	return t == Food || t == Materials || t == Energy
}
