// Package config loads the configuration of the bandstand binaries from an
// optional YAML file and BANDSTAND_* environment variables.
//
// A file looks like:
//
//	server:
//	  listen: localhost:1782
//	  database:
//	    driver: sqlite
//	    url: /var/lib/bandstand/bands.db
//	  workers: 3
//	  shutdown_grace: 5s
//	client:
//	  server: localhost:1782
//	  reconnect_delay: 5s
//	  reconnect_attempts: 3
package config
