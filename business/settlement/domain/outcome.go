package domain

// Outcome is one poll's verdict: a terminal status, or retry later.
type Outcome struct {
	terminal          bool
	status            Status
	destinationTxHash string
}

// Retry means nothing definitive was observed.
var Retry = Outcome{}

// Terminal is a definitive observation. status must be successful or failed.
func Terminal(status Status) Outcome {
	return Outcome{terminal: true, status: status}
}

// WithDestinationTx attaches the destination chain hash reported by a provider.
func (o Outcome) WithDestinationTx(hash string) Outcome {
	o.destinationTxHash = hash
	return o
}

// IsTerminal reports whether the poll resolved the stage.
func (o Outcome) IsTerminal() bool { return o.terminal }

// Status is the observed status; StatusUnset for Retry.
func (o Outcome) Status() Status { return o.status }

// DestinationTxHash is the provider-reported destination hash, if any.
func (o Outcome) DestinationTxHash() string { return o.destinationTxHash }

// Update maps a terminal outcome on stage to a record change. A failed
// source leg also fails the transfer since nothing will reach the destination.
func (s Stage) Update(o Outcome) Update {
	if !o.terminal {
		return Update{}
	}
	switch s {
	case StageSource:
		u := Update{SourceStatus: o.status}
		if o.status == StatusFailed {
			u.FinalStatus = StatusFailed
		}
		return u
	default:
		return Update{FinalStatus: o.status, DestinationTxHash: o.destinationTxHash}
	}
}
