package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/pkg/logger"
)

var ErrOfferOwnItem = errors.New("cannot make an offer on own item")

// OfferService 商品出价，按出价顺序追加
type OfferService struct {
	offers  *durable.List[model.Offer]
	catalog *CatalogService
	rt      Runtime
}

func NewOfferService(offers *durable.List[model.Offer], catalog *CatalogService, rt Runtime) *OfferService {
	return &OfferService{offers: offers, catalog: catalog, rt: rt}
}

type makeOfferInput struct {
	ItemID  string  `validate:"required"`
	BuyerID string  `validate:"required"`
	Amount  float64 `validate:"gt=0"`
}

// MakeOffer buyer 对 itemID 出价 amount
func (s *OfferService) MakeOffer(ctx context.Context, itemID string, buyer model.User, amount float64) (o model.Offer, err error) {
	ctx, done := observe(ctx, "offers", "make")
	defer func() { done(err) }()

	if err = validateStruct(makeOfferInput{ItemID: itemID, BuyerID: buyer.ID, Amount: amount}); err != nil {
		return model.Offer{}, err
	}
	it, err := s.catalog.Item(itemID)
	if err != nil {
		return model.Offer{}, err
	}
	if it.User.ID == buyer.ID {
		return model.Offer{}, ErrOfferOwnItem
	}
	if err = s.rt.Delay.Wait(ctx, latencyMakeOffer); err != nil {
		return model.Offer{}, err
	}

	o = model.Offer{
		ID:        "o" + uuid.NewString(),
		ItemID:    itemID,
		SellerID:  it.User.ID,
		Buyer:     buyer.Public(),
		Amount:    amount,
		CreatedAt: s.rt.Now().Format(time.RFC3339),
	}
	if err = s.offers.Append(ctx, o); err != nil {
		return model.Offer{}, err
	}
	logger.Info("offer made",
		zap.String("item", itemID), zap.String("buyer", buyer.ID), zap.Float64("amount", amount))
	return o, nil
}

// OffersFor sellerID 收到的出价，最新在前
func (s *OfferService) OffersFor(ctx context.Context, sellerID string) ([]model.Offer, error) {
	out, err := s.offers.Filter(ctx, func(o model.Offer) bool { return o.SellerID == sellerID })
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}
