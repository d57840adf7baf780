// Package scheduler fires overnight run windows for the nightshift daemon.
// It implements a single-goroutine scheduler using a min-heap of WindowEvents
// sorted by trigger time, with a 60-second max-sleep-cap to handle NTP steps,
// DST transitions, and system sleep.
//
// The scheduler is a daemon-level component: when a window opens it calls a
// registered OnOpen callback, which starts a processing run through the
// normal run flow. It does not persist state — windows are re-registered
// from configuration on daemon restart.
package scheduler
