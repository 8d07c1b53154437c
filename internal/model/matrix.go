package model

// MatrixRow is one customer/app/template path with the experiments currently
// linked to the template, keyed by experiment id.
type MatrixRow struct {
	CustomerID   int64                     `json:"customer_id"`
	CustomerName string                    `json:"customer_name"`
	AppID        int64                     `json:"app_id"`
	AppName      string                    `json:"app_name"`
	TemplateID   int64                     `json:"template_id"`
	TemplateName string                    `json:"template_name"`
	Experiments  map[int64]ExperimentBrief `json:"experiments"`
}

// Matrix is the customer matrix view plus every experiment, so a client can
// render a legend for experiments not linked anywhere.
type Matrix struct {
	Rows        []MatrixRow  `json:"rows"`
	Experiments []Experiment `json:"experiments"`
}
