package contracts

import (
	"encoding/json"
	"math/big"

	"github.com/JadeSamLee/cosmos-swap/native/resolver"
)

// Execute and query envelopes. One optional field per method, CosmWasm style:
// exactly one must be set.

type escrowExecute struct {
	Deposit         *struct{}           `json:"deposit,omitempty"`
	Withdraw        *secretMsg          `json:"withdraw,omitempty"`
	PartialWithdraw *partialWithdrawArg `json:"partial_withdraw,omitempty"`
	Cancel          *struct{}           `json:"cancel,omitempty"`
	ConfirmSource   *confirmSourceArg   `json:"confirm_src_escrow,omitempty"`
	Receive         *receiveArg         `json:"receive,omitempty"`
}

type secretMsg struct {
	Secret string `json:"secret"`
}

type partialWithdrawArg struct {
	Secret string `json:"secret"`
	Amount string `json:"amount"`
}

type confirmSourceArg struct {
	SrcTxHash   string `json:"src_tx_hash"`
	BlockHeight uint64 `json:"block_height"`
}

type receiveArg struct {
	Sender string          `json:"sender"`
	Amount string          `json:"amount"`
	Msg    json.RawMessage `json:"msg,omitempty"`
}

type escrowQuery struct {
	Escrow       *struct{}       `json:"escrow,omitempty"`
	CurrentPrice *currentTimeArg `json:"current_price,omitempty"`
	FillStatus   *struct{}       `json:"fill_status,omitempty"`
}

type currentTimeArg struct {
	At int64 `json:"at,omitempty"`
}

type factoryExecute struct {
	CreateSrcEscrow *createEscrowArg `json:"create_src_escrow,omitempty"`
	CreateDstEscrow *createEscrowArg `json:"create_dst_escrow,omitempty"`
	UpdateTemplates *updateTplArg    `json:"update_templates,omitempty"`
	UpdateOwner     *updateOwnerArg  `json:"update_owner,omitempty"`
}

type createEscrowArg struct {
	Label  string          `json:"label"`
	Params json.RawMessage `json:"params"`
}

type updateTplArg struct {
	SourceTemplate string `json:"source_template,omitempty"`
	DestTemplate   string `json:"dest_template,omitempty"`
}

type updateOwnerArg struct {
	NewOwner string `json:"new_owner"`
}

type factoryQuery struct {
	Config        *struct{}       `json:"config,omitempty"`
	EscrowAddress *saltArg        `json:"escrow_address,omitempty"`
	Escrows       *listEscrowsArg `json:"escrows,omitempty"`
	EscrowDetails *saltArg        `json:"escrow_details,omitempty"`
}

type saltArg struct {
	Salt string `json:"salt"`
}

type listEscrowsArg struct {
	StartAfter string `json:"start_after,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type resolverExecute struct {
	DeploySrc       *resolver.DeploySourceParams `json:"deploy_src,omitempty"`
	DeployDst       *deployDstArg                `json:"deploy_dst,omitempty"`
	Withdraw        *orderSecretArg              `json:"withdraw,omitempty"`
	PartialWithdraw *orderPartialArg             `json:"partial_withdraw,omitempty"`
	Cancel          *orderArg                    `json:"cancel,omitempty"`
	ProcessOrder    *processOrderArg             `json:"process_order,omitempty"`
	AddRelayer      *relayerArg                  `json:"add_relayer,omitempty"`
	RemoveRelayer   *relayerArg                  `json:"remove_relayer,omitempty"`
	UpdateOwner     *updateOwnerArg              `json:"update_owner,omitempty"`
}

type deployDstArg struct {
	OrderID string                    `json:"order_id"`
	Params  resolver.DeployDestParams `json:"params"`
}

type orderArg struct {
	OrderID string `json:"order_id"`
}

type orderSecretArg struct {
	OrderID string `json:"order_id"`
	Secret  string `json:"secret"`
}

type orderPartialArg struct {
	OrderID string `json:"order_id"`
	Secret  string `json:"secret"`
	Amount  string `json:"amount"`
}

type processOrderArg struct {
	OrderID string                 `json:"order_id"`
	Params  resolver.ProcessParams `json:"params"`
}

type relayerArg struct {
	Address string `json:"address"`
}

type resolverQuery struct {
	Config        *struct{}      `json:"config,omitempty"`
	Order         *orderArg      `json:"order,omitempty"`
	OrderByEscrow *addressArg    `json:"order_by_escrow,omitempty"`
	Orders        *listOrdersArg `json:"active_orders,omitempty"`
	CurrentPrice  *orderAtArg    `json:"current_price,omitempty"`
	OrderStatus   *orderAtArg    `json:"order_status,omitempty"`
	IsRelayer     *addressArg    `json:"is_authorized_relayer,omitempty"`
}

type addressArg struct {
	Address string `json:"address"`
}

type listOrdersArg struct {
	StartAfter string `json:"start_after,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type orderAtArg struct {
	OrderID string `json:"order_id"`
	At      int64  `json:"at,omitempty"`
}

type auctionExecute struct {
	Bid *struct{} `json:"bid,omitempty"`
	End *struct{} `json:"end,omitempty"`
}

type auctionQuery struct {
	Auction      *struct{}       `json:"auction,omitempty"`
	CurrentPrice *currentTimeArg `json:"current_price,omitempty"`
}

type fillBookExecute struct {
	CreateOrder *fillOrderParamsArg `json:"create_order,omitempty"`
	Fill        *fillArg            `json:"fill,omitempty"`
	CancelOrder *fillOrderArg       `json:"cancel_order,omitempty"`
}

type fillOrderParamsArg struct {
	ID                string   `json:"id"`
	Maker             string   `json:"maker"`
	AssetDenom        string   `json:"asset_denom"`
	PaymentDenom      string   `json:"payment_denom"`
	PricePerUnit      *big.Int `json:"price_per_unit"`
	AllowPartialFill  bool     `json:"allow_partial_fill"`
	MinimumFillAmount *big.Int `json:"minimum_fill_amount,omitempty"`
}

type fillArg struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

type fillOrderArg struct {
	ID string `json:"id"`
}

type fillBookQuery struct {
	Order  *fillOrderArg `json:"order,omitempty"`
	Status *fillOrderArg `json:"status,omitempty"`
}

type tokenExecute struct {
	Transfer *tokenTransferArg `json:"transfer,omitempty"`
	Send     *tokenSendArg     `json:"send,omitempty"`
}

type tokenTransferArg struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type tokenSendArg struct {
	Contract string          `json:"contract"`
	Amount   string          `json:"amount"`
	Msg      json.RawMessage `json:"msg,omitempty"`
}

type tokenQuery struct {
	Balance   *addressArg `json:"balance,omitempty"`
	TokenInfo *struct{}   `json:"token_info,omitempty"`
}

// resolverInitMsg seeds the resolver instance.
type resolverInitMsg struct {
	Owner    string   `json:"owner"`
	Factory  string   `json:"factory"`
	Relayers []string `json:"relayers,omitempty"`
}

// factoryInitMsg seeds the factory instance.
type factoryInitMsg struct {
	Owner          string `json:"owner"`
	SourceTemplate string `json:"source_template"`
	DestTemplate   string `json:"dest_template"`
}

func parseAmount(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}
