package contracts

import (
	"bytes"
	"encoding/json"

	"github.com/JadeSamLee/cosmos-swap/core/state"
	"github.com/JadeSamLee/cosmos-swap/core/types"
	"github.com/JadeSamLee/cosmos-swap/native/factory"
	"github.com/JadeSamLee/cosmos-swap/native/partialfill"
)

func unmarshalStrict(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *Host) dispatch(eng *engines, env Env, inst *state.Instance, info MsgInfo, msg []byte) ([]types.Msg, error) {
	switch inst.Template {
	case TemplateSourceEscrow:
		return h.execSourceEscrow(eng, inst.Address, info, msg)
	case TemplateDestEscrow:
		return h.execDestEscrow(eng, inst.Address, info, msg)
	case TemplateFactory:
		return h.execFactory(eng, env, info, msg)
	case TemplateResolver:
		return h.execResolver(eng, env, inst.Address, info, msg)
	case TemplateAuction:
		return h.execAuction(eng, inst.Address, info, msg)
	case TemplateFillBook:
		return h.execFillBook(eng, info, msg)
	case TemplateToken:
		return h.execToken(eng, inst.Address, info, msg)
	}
	return nil, ErrUnknownTemplate
}

func (h *Host) execSourceEscrow(eng *engines, addr string, info MsgInfo, msg []byte) ([]types.Msg, error) {
	var env escrowExecute
	if err := unmarshalStrict(msg, &env); err != nil {
		return nil, err
	}
	switch {
	case env.Deposit != nil:
		return nil, eng.src.Deposit(addr, info.Sender, info.Funds)
	case env.Withdraw != nil:
		return eng.src.Withdraw(addr, info.Sender, env.Withdraw.Secret)
	case env.PartialWithdraw != nil:
		amount, ok := parseAmount(env.PartialWithdraw.Amount)
		if !ok {
			return nil, ErrInvalidAmount
		}
		return eng.src.PartialWithdraw(addr, info.Sender, env.PartialWithdraw.Secret, amount)
	case env.Cancel != nil:
		return eng.src.Cancel(addr, info.Sender)
	case env.Receive != nil:
		amount, ok := parseAmount(env.Receive.Amount)
		if !ok {
			return nil, ErrInvalidAmount
		}
		return nil, eng.src.DepositToken(addr, info.Sender, env.Receive.Sender, amount)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) execDestEscrow(eng *engines, addr string, info MsgInfo, msg []byte) ([]types.Msg, error) {
	var env escrowExecute
	if err := unmarshalStrict(msg, &env); err != nil {
		return nil, err
	}
	switch {
	case env.Deposit != nil:
		return nil, eng.dst.Deposit(addr, info.Sender, info.Funds)
	case env.Withdraw != nil:
		return eng.dst.Withdraw(addr, info.Sender, env.Withdraw.Secret)
	case env.Cancel != nil:
		return eng.dst.Cancel(addr, info.Sender)
	case env.ConfirmSource != nil:
		return nil, eng.dst.ConfirmSource(addr, env.ConfirmSource.SrcTxHash, env.ConfirmSource.BlockHeight)
	case env.Receive != nil:
		amount, ok := parseAmount(env.Receive.Amount)
		if !ok {
			return nil, ErrInvalidAmount
		}
		return nil, eng.dst.DepositToken(addr, info.Sender, env.Receive.Sender, amount)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) execFactory(eng *engines, env Env, info MsgInfo, msg []byte) ([]types.Msg, error) {
	var body factoryExecute
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.CreateSrcEscrow != nil:
		res, err := eng.fac.CreateEscrow(factory.KindSource, info.Sender, env.BlockTimeNanos, body.CreateSrcEscrow.Label, body.CreateSrcEscrow.Params)
		if err != nil {
			return nil, err
		}
		return res.Msgs, nil
	case body.CreateDstEscrow != nil:
		res, err := eng.fac.CreateEscrow(factory.KindDest, info.Sender, env.BlockTimeNanos, body.CreateDstEscrow.Label, body.CreateDstEscrow.Params)
		if err != nil {
			return nil, err
		}
		return res.Msgs, nil
	case body.UpdateTemplates != nil:
		return nil, eng.fac.UpdateTemplates(info.Sender, body.UpdateTemplates.SourceTemplate, body.UpdateTemplates.DestTemplate)
	case body.UpdateOwner != nil:
		return nil, eng.fac.UpdateOwner(info.Sender, body.UpdateOwner.NewOwner)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) execResolver(eng *engines, env Env, addr string, info MsgInfo, msg []byte) ([]types.Msg, error) {
	eng.res.SetSelf(addr)
	var body resolverExecute
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.DeploySrc != nil:
		_, msgs, err := eng.res.DeploySource(info.Sender, env.BlockTimeNanos, *body.DeploySrc)
		return msgs, err
	case body.DeployDst != nil:
		return eng.res.DeployDestination(info.Sender, body.DeployDst.OrderID, env.BlockTimeNanos, body.DeployDst.Params)
	case body.Withdraw != nil:
		return eng.res.Withdraw(info.Sender, body.Withdraw.OrderID, body.Withdraw.Secret)
	case body.PartialWithdraw != nil:
		amount, ok := parseAmount(body.PartialWithdraw.Amount)
		if !ok {
			return nil, ErrInvalidAmount
		}
		return eng.res.PartialWithdraw(info.Sender, body.PartialWithdraw.OrderID, body.PartialWithdraw.Secret, amount)
	case body.Cancel != nil:
		return eng.res.Cancel(info.Sender, body.Cancel.OrderID)
	case body.ProcessOrder != nil:
		return eng.res.ProcessOrder(info.Sender, body.ProcessOrder.OrderID, body.ProcessOrder.Params)
	case body.AddRelayer != nil:
		return nil, eng.res.AddRelayer(info.Sender, body.AddRelayer.Address)
	case body.RemoveRelayer != nil:
		return nil, eng.res.RemoveRelayer(info.Sender, body.RemoveRelayer.Address)
	case body.UpdateOwner != nil:
		return nil, eng.res.UpdateOwner(info.Sender, body.UpdateOwner.NewOwner)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) execAuction(eng *engines, addr string, info MsgInfo, msg []byte) ([]types.Msg, error) {
	var body auctionExecute
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Bid != nil:
		return eng.auc.Bid(addr, info.Sender, info.Funds)
	case body.End != nil:
		return eng.auc.End(addr, info.Sender)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) execFillBook(eng *engines, info MsgInfo, msg []byte) ([]types.Msg, error) {
	var body fillBookExecute
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.CreateOrder != nil:
		p := body.CreateOrder
		_, err := eng.fill.CreateOrder(info.Sender, info.Funds, partialfill.OrderParams{
			ID:                p.ID,
			Maker:             p.Maker,
			AssetDenom:        p.AssetDenom,
			PaymentDenom:      p.PaymentDenom,
			PricePerUnit:      p.PricePerUnit,
			AllowPartialFill:  p.AllowPartialFill,
			MinimumFillAmount: p.MinimumFillAmount,
		})
		return nil, err
	case body.Fill != nil:
		amount, ok := parseAmount(body.Fill.Amount)
		if !ok {
			return nil, ErrInvalidAmount
		}
		return eng.fill.Fill(body.Fill.ID, info.Sender, info.Funds, amount)
	case body.CancelOrder != nil:
		return eng.fill.CancelOrder(body.CancelOrder.ID, info.Sender)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) execToken(eng *engines, addr string, info MsgInfo, msg []byte) ([]types.Msg, error) {
	var body tokenExecute
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Transfer != nil:
		amount, ok := parseAmount(body.Transfer.Amount)
		if !ok {
			return nil, ErrInvalidAmount
		}
		return nil, eng.tok.Transfer(addr, info.Sender, body.Transfer.Recipient, amount)
	case body.Send != nil:
		amount, ok := parseAmount(body.Send.Amount)
		if !ok {
			return nil, ErrInvalidAmount
		}
		return eng.tok.Send(addr, info.Sender, body.Send.Contract, amount, body.Send.Msg)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) query(eng *engines, env Env, inst *state.Instance, msg []byte) ([]byte, error) {
	switch inst.Template {
	case TemplateSourceEscrow:
		return h.querySourceEscrow(eng, env, inst.Address, msg)
	case TemplateDestEscrow:
		return h.queryDestEscrow(eng, inst.Address, msg)
	case TemplateFactory:
		return h.queryFactory(eng, msg)
	case TemplateResolver:
		return h.queryResolver(eng, env, msg)
	case TemplateAuction:
		return h.queryAuction(eng, env, inst.Address, msg)
	case TemplateFillBook:
		return h.queryFillBook(eng, msg)
	case TemplateToken:
		return h.queryToken(eng, inst.Address, msg)
	}
	return nil, ErrUnknownTemplate
}

func (h *Host) querySourceEscrow(eng *engines, env Env, addr string, msg []byte) ([]byte, error) {
	var body escrowQuery
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Escrow != nil:
		esc, err := eng.src.Get(addr)
		if err != nil {
			return nil, err
		}
		return json.Marshal(esc)
	case body.CurrentPrice != nil:
		at := body.CurrentPrice.At
		if at == 0 {
			at = env.BlockTime
		}
		view, err := eng.src.CurrentPrice(addr, at)
		if err != nil {
			return nil, err
		}
		return json.Marshal(view)
	case body.FillStatus != nil:
		view, err := eng.src.FillStatus(addr)
		if err != nil {
			return nil, err
		}
		return json.Marshal(view)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) queryDestEscrow(eng *engines, addr string, msg []byte) ([]byte, error) {
	var body escrowQuery
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	if body.Escrow == nil {
		return nil, ErrUnknownMethod
	}
	esc, err := eng.dst.Get(addr)
	if err != nil {
		return nil, err
	}
	return json.Marshal(esc)
}

func (h *Host) queryFactory(eng *engines, msg []byte) ([]byte, error) {
	var body factoryQuery
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Config != nil:
		cfg, err := eng.fac.GetConfig()
		if err != nil {
			return nil, err
		}
		return json.Marshal(cfg)
	case body.EscrowAddress != nil:
		addr, err := eng.fac.EscrowAddress(body.EscrowAddress.Salt)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Address string `json:"address"`
		}{Address: addr})
	case body.EscrowDetails != nil:
		record, err := eng.fac.EscrowBySalt(body.EscrowDetails.Salt)
		if err != nil {
			return nil, err
		}
		return json.Marshal(record)
	case body.Escrows != nil:
		records, err := eng.fac.EscrowList(body.Escrows.StartAfter, body.Escrows.Limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(records)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) queryResolver(eng *engines, env Env, msg []byte) ([]byte, error) {
	var body resolverQuery
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Config != nil:
		cfg, err := eng.res.GetConfig()
		if err != nil {
			return nil, err
		}
		return json.Marshal(cfg)
	case body.Order != nil:
		order, err := eng.res.GetOrder(body.Order.OrderID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(order)
	case body.OrderByEscrow != nil:
		order, err := eng.res.OrderByEscrow(body.OrderByEscrow.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(order)
	case body.Orders != nil:
		orders, err := eng.res.ListOrders(body.Orders.StartAfter, body.Orders.Limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(orders)
	case body.CurrentPrice != nil:
		at := body.CurrentPrice.At
		if at == 0 {
			at = env.BlockTime
		}
		price, err := eng.res.CurrentPrice(body.CurrentPrice.OrderID, at)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Price string `json:"price"`
		}{Price: price.String()})
	case body.OrderStatus != nil:
		at := body.OrderStatus.At
		if at == 0 {
			at = env.BlockTime
		}
		status, err := eng.res.OrderStatusAt(body.OrderStatus.OrderID, at)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Status string `json:"status"`
		}{Status: string(status)})
	case body.IsRelayer != nil:
		ok, err := eng.res.IsAuthorizedRelayer(body.IsRelayer.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Authorized bool `json:"is_authorized"`
		}{Authorized: ok})
	}
	return nil, ErrUnknownMethod
}

func (h *Host) queryAuction(eng *engines, env Env, addr string, msg []byte) ([]byte, error) {
	var body auctionQuery
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Auction != nil:
		a, err := eng.auc.Get(addr)
		if err != nil {
			return nil, err
		}
		return json.Marshal(a)
	case body.CurrentPrice != nil:
		at := body.CurrentPrice.At
		if at == 0 {
			at = env.BlockTime
		}
		price, err := eng.auc.CurrentPrice(addr, at)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Price string `json:"price"`
		}{Price: price.String()})
	}
	return nil, ErrUnknownMethod
}

func (h *Host) queryFillBook(eng *engines, msg []byte) ([]byte, error) {
	var body fillBookQuery
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Order != nil:
		order, err := eng.fill.GetOrder(body.Order.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(order)
	case body.Status != nil:
		status, err := eng.fill.OrderStatus(body.Status.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(status)
	}
	return nil, ErrUnknownMethod
}

func (h *Host) queryToken(eng *engines, addr string, msg []byte) ([]byte, error) {
	var body tokenQuery
	if err := unmarshalStrict(msg, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Balance != nil:
		bal, err := eng.tok.Balance(addr, body.Balance.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Balance string `json:"balance"`
		}{Balance: bal.String()})
	case body.TokenInfo != nil:
		info, err := eng.tok.GetInfo(addr)
		if err != nil {
			return nil, err
		}
		return json.Marshal(info)
	}
	return nil, ErrUnknownMethod
}
