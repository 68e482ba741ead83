// Package schemas embeds the JSON Schemas for request documents accepted by
// the API server and the CLI.
package schemas

import "embed"

// Schema file names.
const (
	PlateRequest = "plate_request.schema.json"
	PlanRequest  = "plan_request.schema.json"
)

// FS holds every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS
