package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx
// responses.
type errorResponse struct {
	Error string `json:"error"`
}

// submitPositionRequest is the inbound report shape. Coordinates follow
// the GeoJSON [longitude, latitude] order. Range and finiteness checks
// live in the core validator; the tags only enforce presence.
type submitPositionRequest struct {
	VehicleID    string    `json:"vehicleId"    validate:"required"`
	Coordinates  []float64 `json:"coordinates"  validate:"required"`
	Speed        *float64  `json:"speed"`
	RouteSegment string    `json:"routeSegment"`
}

type submitPositionResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}
