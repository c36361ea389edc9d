package interview

// Profile is the structured user context accumulated across the
// conversation via extract_user_context tool calls.
type Profile struct {
	Name            string   `json:"name,omitempty"`
	Role            string   `json:"role,omitempty"`
	Industry        string   `json:"industry,omitempty"`
	Department      string   `json:"department,omitempty"`
	CompanyContext  string   `json:"company_context,omitempty"`
	DesiredOutcomes []string `json:"desired_outcomes"`
	PainPoints      []string `json:"pain_points"`
	CurrentTools    []string `json:"current_tools"`
	DataSources     []string `json:"data_sources"`
}

// NewProfile returns an empty profile with allocated lists.
func NewProfile() Profile {
	return Profile{
		DesiredOutcomes: []string{},
		PainPoints:      []string{},
		CurrentTools:    []string{},
		DataSources:     []string{},
	}
}

// ProfileUpdate is a partial profile. Nil fields are untouched; set
// fields replace the existing value wholesale, lists included. The model
// resends complete lists rather than diffs, so merging element-wise
// would duplicate entries.
type ProfileUpdate struct {
	Name            *string
	Role            *string
	Industry        *string
	Department      *string
	CompanyContext  *string
	DesiredOutcomes []string
	PainPoints      []string
	CurrentTools    []string
	DataSources     []string
}

func (p *Profile) apply(u ProfileUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.Industry != nil {
		p.Industry = *u.Industry
	}
	if u.Department != nil {
		p.Department = *u.Department
	}
	if u.CompanyContext != nil {
		p.CompanyContext = *u.CompanyContext
	}
	if u.DesiredOutcomes != nil {
		p.DesiredOutcomes = append([]string(nil), u.DesiredOutcomes...)
	}
	if u.PainPoints != nil {
		p.PainPoints = append([]string(nil), u.PainPoints...)
	}
	if u.CurrentTools != nil {
		p.CurrentTools = append([]string(nil), u.CurrentTools...)
	}
	if u.DataSources != nil {
		p.DataSources = append([]string(nil), u.DataSources...)
	}
}
