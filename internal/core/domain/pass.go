package domain

// PassState is the position of a backfill pass in its state machine.
type PassState string

const (
	PassStateIdle       PassState = "idle"
	PassStateScanning   PassState = "scanning"
	PassStateDiffing    PassState = "diffing"
	PassStateRetrieving PassState = "retrieving"
	PassStateEncoding   PassState = "encoding"
	PassStateUploading  PassState = "uploading"
	PassStatePersisting PassState = "persisting"
	PassStateDone       PassState = "done"
)

// PassStates lists every state in transition order.
var PassStates = []PassState{
	PassStateIdle,
	PassStateScanning,
	PassStateDiffing,
	PassStateRetrieving,
	PassStateEncoding,
	PassStateUploading,
	PassStatePersisting,
	PassStateDone,
}
