package models

import "time"

// TimerSession is the ephemeral anchor of the one task an operator is
// actively timing on this device.
type TimerSession struct {
	TaskID               string    `yaml:"task_id" json:"task_id"`
	OperatorID           string    `yaml:"operator_id" json:"operator_id"`
	StartTime            time.Time `yaml:"start_time" json:"start_time"`
	TotalDurationAtStart int64     `yaml:"total_duration_at_start" json:"total_duration_at_start"`
}
