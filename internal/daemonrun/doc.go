// Package daemonrun hosts the `fileflows run` process: logging setup, log
// retention, the pid file, the record store, the daemon and its IPC server.
package daemonrun
