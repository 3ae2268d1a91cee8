// Package telemetry reports current spend against the configured monthly
// soft and hard caps. Spend is derived from the event store on every run;
// nothing is persisted besides the daily report artifacts.
package telemetry
