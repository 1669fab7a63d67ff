// Package capture implements the passive capture path: while a human scrolls
// the profile, the site's own timeline requests are observed on the network
// layer and their bodies are turned into batches for the pipeline writer.
package capture
