// Package docs provides the OpenAPI documentation for the docextract server.
//
// docextract API
//
//	@title			docextract API
//	@version		1.0
//	@description	Classifies uploaded identity and academic documents and extracts their fields.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/docextract
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8000
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/docextract/serve.go -o . --outputTypes go --parseDependency --parseInternal
