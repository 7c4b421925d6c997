package feature

// Builder collects templates for a single Compile call.
//
//	exports, err := feature.NewBuilder().
//		None(feature.NoneTemplate{Code: "open", Handler: open}).
//		FixedList(colors).
//		Build(feature.WithStrict())
type Builder struct {
	templates []Template
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends templates of any kind.
func (b *Builder) Add(templates ...Template) *Builder {
	b.templates = append(b.templates, templates...)
	return b
}

// None appends no-UI templates.
func (b *Builder) None(templates ...NoneTemplate) *Builder {
	for _, t := range templates {
		b.templates = append(b.templates, t)
	}
	return b
}

// FixedList appends fixed-list templates.
func (b *Builder) FixedList(templates ...FixedListTemplate) *Builder {
	for _, t := range templates {
		b.templates = append(b.templates, t)
	}
	return b
}

// DynamicList appends dynamic-list templates.
func (b *Builder) DynamicList(templates ...DynamicListTemplate) *Builder {
	for _, t := range templates {
		b.templates = append(b.templates, t)
	}
	return b
}

// Templates returns the collected templates in insertion order.
func (b *Builder) Templates() []Template {
	out := make([]Template, len(b.templates))
	copy(out, b.templates)
	return out
}

// Build compiles the collected templates.
func (b *Builder) Build(opts ...CompileOption) (Exports, error) {
	return Compile(b.templates, opts...)
}
