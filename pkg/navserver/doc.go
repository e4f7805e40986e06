// Package navserver serves a route tree over HTTP and WebSocket.
//
// HTTP endpoints:
//
//	GET /resolve?location=/family/f1&state={"loggedIn":true}
//	GET /link/{name}?fid=f1&pid=7
//	GET /routes
//	GET /metrics
//	GET /healthz
//
// GET /ws opens a navigation session. Each session owns a router.Navigator
// with its own back/forward history. Clients send JSON requests:
//
//	{"id":"1","op":"navigate","location":"/family/f1/person/7"}
//	{"id":"2","op":"back"}
//	{"id":"3","op":"state","state":{"loggedIn":true}}
//	{"id":"4","op":"link","name":"person","params":{"fid":"f1","pid":"7"}}
//
// and receive a Response carrying the resolved stack and the history. When
// the route tree is replaced with SetTree every session refreshes its
// current location and receives a "tree" message.
//
// Usage:
//
//	srv := navserver.New(navserver.DefaultConfig().WithAddress(":8080"), resolver, tree)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package navserver
