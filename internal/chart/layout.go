package chart

// Shape is a layout shape: a cutoff marker, the ruler box or its diagonal.
type Shape struct {
	Name      string  `json:"name,omitempty"`
	Type      string  `json:"type"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	X0        string  `json:"x0"`
	X1        string  `json:"x1"`
	Y0        float64 `json:"y0"`
	Y1        float64 `json:"y1"`
	Line      Line    `json:"line"`
	FillColor string  `json:"fillcolor,omitempty"`
	Layer     string  `json:"layer,omitempty"`
	Editable  bool    `json:"editable,omitempty"`
}

// Annotation is a text label anchored in data coordinates.
type Annotation struct {
	X         string  `json:"x"`
	Y         float64 `json:"y"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	Text      string  `json:"text"`
	ShowArrow bool    `json:"showarrow"`
	BGColor   string  `json:"bgcolor,omitempty"`
	Align     string  `json:"align,omitempty"`
}

// Axis configures one axis.
type Axis struct {
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// Legend configures the legend box.
type Legend struct {
	Orientation string `json:"orientation,omitempty"`
}

// Layout is the figure layout.
type Layout struct {
	Title       string       `json:"title,omitempty"`
	XAxis       Axis         `json:"xaxis"`
	YAxis       Axis         `json:"yaxis"`
	HoverMode   string       `json:"hovermode,omitempty"`
	DragMode    string       `json:"dragmode,omitempty"`
	Legend      Legend       `json:"legend"`
	Shapes      []Shape      `json:"shapes"`
	Annotations []Annotation `json:"annotations"`
}

// Config is the surface configuration.
type Config struct {
	Responsive          bool     `json:"responsive"`
	DisplayLogo         bool     `json:"displaylogo"`
	ModeBarButtonsToAdd []string `json:"modeBarButtonsToAdd,omitempty"`
}
