// Package command implements the commands a server executes on behalf of
// clients, the registry that names them and the dispatcher that routes
// requests to them.
//
// Commands share an Env holding the collection store and the gateway.
// Every mutating command calls the gateway first and touches the store
// only after the gateway succeeded, all under one lock, so the store never
// diverges from the database.
//
// Expected failures (empty collection, unknown id, invalid band, bad
// credentials) are reported in the Response; they are never returned as Go
// errors.
package command
