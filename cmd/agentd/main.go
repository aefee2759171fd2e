// Command agentd runs the live agent backend: presence, answers, the offline
// inbox, chat rooms and the realtime hub.
package main

import _ "time/tzdata" // TRANSCRIPT_TZ must resolve in minimal images

//	@title						Agent Backend API
//	@version					1.0
//	@description				Live chat backend: admin presence, automatic answers, offline inbox, chat rooms and a websocket hub.
//	@BasePath					/agent
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the admin JWT.
func main() {
	Execute()
}
