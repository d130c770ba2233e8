package main

// General API documentation for swaggo. Run `swag init -g cmd/agentd/docs.go`
// to generate docs.
//
// @title           agentd API
// @version         1.0
// @description     HTTP API for the local AI assistant daemon: chat, web search, vision, and desktop automation with on-demand component loading.
//
// @contact.name   agentd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
