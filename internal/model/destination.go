package model

// PushDestination is an opaque delivery target bound to a worker. Endpoint
// and credential come from the push transport; the core only stores and
// forwards them, and removes the row when the transport reports the
// endpoint gone.
type PushDestination struct {
	Base
	WorkerID   WorkerID `db:"worker_id" json:"worker_id"`
	Endpoint   string   `db:"endpoint" json:"endpoint"`
	Credential string   `db:"credential" json:"-"`
	Label      string   `db:"label" json:"label,omitempty"`
}

type RegisterDestinationRequest struct {
	Endpoint   string `json:"endpoint" validate:"required,url"`
	Credential string `json:"credential" validate:"required"`
	Label      string `json:"label" validate:"max=100"`
}
