// Package model provides the data structures shared by the process package and its hooks.
// It describes the steps of a pipeline and defines the options that observe a pipeline run.
package model
