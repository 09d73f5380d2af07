package entity

import "time"

// LaunchSpec is the declarative description of how to start the automation
// server and where to poll for readiness. It is consumed verbatim by the
// launcher and never interpreted.
type LaunchSpec struct {
	Command  string
	Args     []string
	ReadyURL string
}

// ServerHandle represents one running automation server. It exposes only the
// reachability endpoint; process ownership stays with the launcher.
type ServerHandle struct {
	Endpoint  string
	PID       int
	StartedAt time.Time
}
