// Package process provides a pipeline for processing data held in named references.
//
// A pipeline is built once from its settings: the references it works on, the clients it talks to and the ordered
// list of steps it runs. Steps never hand values to each other directly. Each step reads from references, computes
// and writes its result into another reference, which keeps the data flow of the pipeline visible from its
// references alone and lets every step be tested on its own.
//
// The package offers the usual steps of an extract and load job. Assign, Transform and Modify produce a value and
// write it into a reference following an overwrite policy. Retry runs a step again after a failure. The batch
// processor splits a large value into batches and runs a list of steps once per batch, retrying the failed batches
// after the others. ForEach builds and runs an isolated sub-process for every item of a collection.
//
// Steps run strictly in order and the pipeline stops on the first error. A step can also end the pipeline early and
// cleanly, for example when there is nothing to update, by returning an EarlyEscape.
//
// Hooks observe every step of a run. The measure, drawer, tracing and report packages provide hooks recording
// durations, drawing the steps, tracing them with OpenTelemetry and reporting failures to Sentry.
package process
