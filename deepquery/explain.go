package deepquery

// Plan is the parsed form of a selector as the resolver will run it.
type Plan struct {
	Selector string      `json:"selector"`
	Stages   []PlanStage `json:"stages"`
}

// PlanStage is one ">>>" segment.
type PlanStage struct {
	Index        int               `json:"index"`
	Selector     string            `json:"selector"`
	Final        bool              `json:"final"`
	Alternatives []PlanAlternative `json:"alternatives"`
}

// PlanAlternative is one comma branch with its compound components,
// outermost ancestor first.
type PlanAlternative struct {
	Selector   string   `json:"selector"`
	Components []string `json:"components"`
}

// Explain validates selector and returns its plan without touching a tree.
func Explain(selector string) (*Plan, error) {
	stages, err := compile(selector)
	if err != nil {
		return nil, err
	}
	p := &Plan{Selector: selector}
	for i, st := range stages {
		ps := PlanStage{Index: i, Selector: st.src, Final: i == len(stages)-1}
		for _, a := range st.alts {
			ps.Alternatives = append(ps.Alternatives, PlanAlternative{
				Selector:   a.src,
				Components: append([]string(nil), a.comps...),
			})
		}
		p.Stages = append(p.Stages, ps)
	}
	return p, nil
}
