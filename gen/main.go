package main

import (
	"github.com/starius/api2"

	manager "github.com/RomanDevelop/alien-manager"
)

func main() {
	api2.GenerateClient(manager.GetRoutes)
	api2.GenerateOpenApiSpec(&api2.TypesGenConfig{
		OutDir: "./openapi",
		Routes: []interface{}{manager.GetRoutes},
	})
}
