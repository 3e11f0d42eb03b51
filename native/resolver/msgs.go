package resolver

import "encoding/json"

// Wire envelopes for the messages the resolver queues against the factory and
// the escrow instances it manages. Each target contract decodes these with
// its own mirror types.

type factoryExecMsg struct {
	CreateSrcEscrow *createEscrowMsg `json:"create_src_escrow,omitempty"`
	CreateDstEscrow *createEscrowMsg `json:"create_dst_escrow,omitempty"`
}

type createEscrowMsg struct {
	Label  string          `json:"label"`
	Params json.RawMessage `json:"params"`
}

type escrowExecMsg struct {
	Withdraw        *withdrawMsg        `json:"withdraw,omitempty"`
	PartialWithdraw *partialWithdrawMsg `json:"partial_withdraw,omitempty"`
	Cancel          *struct{}           `json:"cancel,omitempty"`
	ConfirmSource   *confirmSourceMsg   `json:"confirm_src_escrow,omitempty"`
}

type withdrawMsg struct {
	Secret string `json:"secret"`
}

type partialWithdrawMsg struct {
	Secret string `json:"secret"`
	Amount string `json:"amount"`
}

type confirmSourceMsg struct {
	SrcTxHash   string `json:"src_tx_hash"`
	BlockHeight uint64 `json:"block_height"`
}

func mustJSON(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
