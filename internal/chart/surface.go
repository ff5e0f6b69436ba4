package chart

// Props is a restyle or relayout property set.
type Props map[string]any

// Completion is invoked once the surface has applied a command. It is the
// only point at which control returns asynchronously to the caller.
type Completion func(err error)

// Figure is everything a plot call needs.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
	Config Config  `json:"config"`
}

// Surface draws a chart. Implementations must invoke done exactly once; done
// may be nil.
type Surface interface {
	Plot(fig Figure, done Completion)
	Restyle(props Props, indices []int, done Completion)
	Relayout(props Props, done Completion)
}

// Complete calls done when set.
func Complete(done Completion, err error) {
	if done != nil {
		done(err)
	}
}
