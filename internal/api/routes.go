package api

import "sync"

var initOnce sync.Once

// Init registers every API route with the web server. It must run before
// webserver.NewWebServer.
func Init() {
	initOnce.Do(func() {
		registerDiagnosticsRoutes()
		registerAuthRoutes()
		registerServiceRoutes()
		registerRatingRoutes()
		registerUploadRoutes()
	})
}
