// Package api contains the request contracts of the stockdash HTTP API.
// Version v1 represents the current stable API version.
package api

// UploadFile is one file as sent by a browser upload widget: the original
// file name and its contents as a data URL
type UploadFile struct {
	Name    string `json:"name" validate:"required,max=255,filename"`
	Content string `json:"content" validate:"required,startswith=data:"`
}

// DashboardOptions overrides the configured figure options for one request
type DashboardOptions struct {
	VolumeAsBar    *bool `json:"volume_as_bar,omitempty"`
	VolumeLogScale *bool `json:"volume_log_scale,omitempty"`
	PreviewRows    *int  `json:"preview_rows,omitempty" validate:"omitempty,min=0,max=1000"`
}

// UploadRequest carries one or two files to merge and derive a dashboard from
type UploadRequest struct {
	Files   []UploadFile      `json:"files" validate:"required,min=1,max=2,dive"`
	Options *DashboardOptions `json:"options,omitempty"`
}

// SnapshotColumn declares a column of a snapshot and, optionally, its kind
type SnapshotColumn struct {
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind,omitempty" validate:"omitempty,oneof=unknown numeric datetime string"`
}

// SnapshotRequest is a full table as held by an editable grid on the client.
// Columns is optional; without it the columns are the union of the row keys.
type SnapshotRequest struct {
	Name    string                   `json:"name,omitempty" validate:"omitempty,max=255"`
	Columns []SnapshotColumn         `json:"columns,omitempty" validate:"omitempty,dive"`
	Rows    []map[string]interface{} `json:"rows" validate:"required"`
	Options *DashboardOptions        `json:"options,omitempty"`
}

// ExportQuery selects the file format of an export
type ExportQuery struct {
	Format string `query:"format" validate:"required,oneof=csv xlsx"`
}
