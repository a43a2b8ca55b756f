package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"certdocs/docs"
)

// SwaggerUI serves the generated API description at /swagger/doc.json and the UI under /swagger/.
func SwaggerUI() fiber.Handler {
	return swagger.New(swagger.Config{
		InstanceName: docs.SwaggerInfo.InstanceName(),
		Title:        docs.SwaggerInfo.Title,
	})
}
