package orders

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"alma.local/scuffer/encoding"
	"alma.local/scuffer/memptr"
)

// SampleOrder returns a fully-populated order: capacity-many offer and
// consideration items, so its directive catalog covers every reserved
// ordinal. Values are arbitrary but fixed; campaigns and tests rely on the
// encoding being reproducible.
func SampleOrder() Order {
	offerer := common.HexToAddress("0x1111111111111111111111111111111111111111")
	zone := common.HexToAddress("0x2222222222222222222222222222222222222222")
	nft := common.HexToAddress("0x3333333333333333333333333333333333333333")
	weth := common.HexToAddress("0x4444444444444444444444444444444444444444")

	offer := make([]OfferItem, 0, OfferCapacity)
	for i := 0; i < OfferCapacity; i++ {
		offer = append(offer, OfferItem{
			ItemType:             uint8(ItemERC721),
			Token:                nft,
			IdentifierOrCriteria: big.NewInt(int64(1000 + i)),
			StartAmount:          big.NewInt(1),
			EndAmount:            big.NewInt(1),
		})
	}

	consideration := make([]ConsiderationItem, 0, ConsiderationCapacity)
	for i := 0; i < ConsiderationCapacity; i++ {
		consideration = append(consideration, ConsiderationItem{
			ItemType:             uint8(ItemERC20),
			Token:                weth,
			IdentifierOrCriteria: big.NewInt(0),
			StartAmount:          big.NewInt(int64(10_000 * (i + 1))),
			EndAmount:            big.NewInt(int64(10_000 * (i + 1))),
			Recipient:            offerer,
		})
	}

	var zoneHash, conduitKey [32]byte
	zoneHash[31] = 0x01

	return Order{
		Parameters: OrderParameters{
			Offerer:                         offerer,
			Zone:                            zone,
			Offer:                           offer,
			Consideration:                   consideration,
			OrderType:                       uint8(FullOpen),
			StartTime:                       big.NewInt(1_700_000_000),
			EndTime:                         big.NewInt(1_800_000_000),
			ZoneHash:                        zoneHash,
			Salt:                            big.NewInt(0x5a17),
			ConduitKey:                      conduitKey,
			TotalOriginalConsiderationItems: big.NewInt(ConsiderationCapacity),
		},
		Signature: append(make([]byte, 0, 65), fixedSignature()...),
	}
}

func fixedSignature() []byte {
	sig := make([]byte, 65)
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	return sig
}

// FulfillOrderCalldata canonical-encodes a fulfillOrder call for the given
// order. The returned buffer is the known-good baseline directives mutate.
func FulfillOrderCalldata(o Order) (*memptr.Buffer, FulfillOrderPointer, error) {
	var conduitKey [32]byte
	buf, tp, err := encoding.FromArgs(FulfillOrderSig, o, conduitKey)
	if err != nil {
		return nil, FulfillOrderPointer{}, err
	}
	return buf, FulfillOrderPointer{tp: tp}, nil
}

// ValidateCalldata canonical-encodes a validate call over a batch.
func ValidateCalldata(batch []Order) (*memptr.Buffer, ValidatePointer, error) {
	buf, tp, err := encoding.FromArgs(ValidateSig, batch)
	if err != nil {
		return nil, ValidatePointer{}, err
	}
	return buf, ValidatePointer{tp: tp}, nil
}
