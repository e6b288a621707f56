package main

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/fuelpoint/fuelpoint-server/internal/app"
	"github.com/fuelpoint/fuelpoint-server/internal/routes"
)

// @title FuelPoint API
// @version 1.0
// @description Back-office API for fuel station shift tracking and reconciliation.
// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Type 'Bearer' followed by a space and then your token."
func main() {
	var port int
	flag.IntVar(&port, "port", 0, "go backend server port, overrides config")
	flag.Parse()

	app, err := app.NewApplication()
	if err != nil {
		panic(err)
	}
	defer app.Close()

	if port == 0 {
		port = app.Config.Port
	}

	r := routes.SetupRoutes(app)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		IdleTimeout:  app.Config.IdleTimeout,
		ReadTimeout:  app.Config.ReadTimeout,
		WriteTimeout: app.Config.WriteTimeout,
	}

	app.Logger.Info(fmt.Sprintf("we are running on port %d", port))

	err = server.ListenAndServe()
	if err != nil {
		app.Logger.Error(fmt.Sprintf("%v", err))
	}
}
