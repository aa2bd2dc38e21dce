package docs

import "github.com/swaggo/swag"

var SwaggerInfo = &swag.Spec{
	Version:     "1.0",
	Host:        "localhost:8080",
	BasePath:    "/",
	Schemes:     []string{},
	Title:       "Grove API",
	Description: "API for the pomodoro session stats service",
}
