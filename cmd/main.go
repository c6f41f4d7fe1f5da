// cmd/main.go
package main

import (
	"face-insight-api/app"
)

// @title           Face Insight API
// @version         1.0
// @description     Token lifecycle, revocation and per-model quota admission for the face analysis models.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
