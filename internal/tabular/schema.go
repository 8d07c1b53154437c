package tabular

import "fmt"

// File names a logical workbook. Each file is locked and rewritten as a unit.
type File string

const (
	FileUsers       File = "users"
	FileEntities    File = "entities"
	FileExperiments File = "experiments"
)

const (
	TableUsers               = "users"
	TableCustomers           = "customers"
	TableApps                = "apps"
	TableTemplates           = "templates"
	TableExperiments         = "experiments"
	TableExperimentTemplates = "experiment_templates"
	TableExperimentGroups    = "experiment_groups"
	TableObjectiveMetrics    = "objective_metrics"
)

// Filename is the on-disk name of the workbook.
func (f File) Filename() string { return string(f) + ".xlsx" }

func (f File) String() string { return string(f) }

// TableSchema is the header of one sheet. Keyed tables carry a surrogate id
// in their first column and take part in id allocation.
type TableSchema struct {
	Name    string
	Columns []string
	Keyed   bool
}

// Layout is the column order of every table; it is the on-disk contract.
var Layout = map[File][]TableSchema{
	FileUsers: {
		{Name: TableUsers, Keyed: true, Columns: []string{
			"id", "username", "password_hash", "display_name", "role",
			"is_active", "must_change_password", "created_at", "created_by", "last_login_at",
		}},
	},
	FileEntities: {
		{Name: TableCustomers, Keyed: true, Columns: []string{"id", "name", "contact", "description", "created_at"}},
		{Name: TableApps, Keyed: true, Columns: []string{"id", "customer_id", "name", "description", "created_at"}},
		{Name: TableTemplates, Keyed: true, Columns: []string{"id", "app_id", "name", "description", "created_at"}},
	},
	FileExperiments: {
		{Name: TableExperiments, Keyed: true, Columns: []string{
			"id", "name", "status", "reference_type", "color", "created_at", "created_by", "updated_at",
		}},
		{Name: TableExperimentTemplates, Columns: []string{"experiment_id", "template_id"}},
		{Name: TableExperimentGroups, Keyed: true, Columns: []string{
			"id", "experiment_id", "name", "encoder_version", "transcode_params",
			"input_url", "output_url", "status", "order_index", "created_at", "updated_at",
		}},
		{Name: TableObjectiveMetrics, Keyed: true, Columns: []string{
			"id", "group_id", "bitrate", "vmaf", "psnr", "ssim",
			"machine_type", "concurrent_streams", "cpu_usage", "gpu_usage",
			"detailed_report_url", "created_at", "updated_at",
		}},
	},
}

// Files lists every logical file in initialization order.
func Files() []File {
	return []File{FileUsers, FileEntities, FileExperiments}
}

func schemaOf(f File) ([]TableSchema, error) {
	s, ok := Layout[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFile, string(f))
	}
	return s, nil
}
