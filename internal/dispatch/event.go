package dispatch

// Event is one normalized inbound message from the chat transport.
// The transport has already reduced platform updates to a command name
// with positional arguments, or to a proof-of-payment photo carrying
// only its message id.
type Event struct {
	ID        string   `json:"id"`
	CallerID  string   `json:"caller_id"`
	Name      string   `json:"name,omitempty"`
	Handle    string   `json:"handle,omitempty"`
	Command   string   `json:"command"`
	Args      []string `json:"args,omitempty"`
	MessageID int      `json:"message_id,omitempty"`
}

// Reply is the payload handed back to the transport for delivery to
// the initiating chat.
type Reply struct {
	EventID   string `json:"event_id"`
	AccountID string `json:"account_id"`
	Text      string `json:"text"`
}

// Command names accepted from any authorized caller.
const (
	CmdStart       = "start"
	CmdBuy         = "buy"
	CmdBalance     = "balance"
	CmdStageTopup  = "stage_topup"
	CmdSubmitProof = "submit_proof"
	CmdPrice       = "price"
	CmdHistory     = "history"
)

// Command names reserved for the owner.
const (
	CmdApprove        = "approve"
	CmdDeduct         = "deduct"
	CmdAuthorize      = "authorize"
	CmdRevoke         = "revoke"
	CmdSetMaintenance = "set_maintenance"
	CmdSetPrice       = "set_price"
	CmdClearPrice     = "clear_price"
	CmdBroadcast      = "broadcast"
	CmdNotifyUser     = "notify_user"
)
