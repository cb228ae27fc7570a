package types

import "testing"

func TestClassifyRestingLimitOnPostOnly(t *testing.T) {
	t.Parallel()
	o := &Order{OrderType: OrderTypeLimit, Direction: DirectionLong, PostOnly: PostOnlyMustPostOnly, Slot: 10, AuctionDuration: 5}
	side, kind := Classify(o, 11)
	if side != SideBid {
		t.Errorf("side = %v, want SideBid", side)
	}
	if kind != NodeKindRestingLimit {
		t.Errorf("kind = %v, want RestingLimit", kind)
	}
}

func TestClassifyTakingLimitDuringAuction(t *testing.T) {
	t.Parallel()
	o := &Order{OrderType: OrderTypeLimit, Direction: DirectionLong, Slot: 100, AuctionDuration: 20}
	_, kind := Classify(o, 119)
	if kind != NodeKindTakingLimit {
		t.Errorf("kind at slot 119 = %v, want TakingLimit", kind)
	}
}

func TestClassifyAuctionCompletion(t *testing.T) {
	t.Parallel()
	o := &Order{OrderType: OrderTypeLimit, Direction: DirectionLong, Slot: 100, AuctionDuration: 20}
	_, kind := Classify(o, 121)
	if kind != NodeKindRestingLimit {
		t.Errorf("kind at slot 121 = %v, want RestingLimit", kind)
	}
}

func TestClassifyFloatingLimit(t *testing.T) {
	t.Parallel()
	o := &Order{OrderType: OrderTypeLimit, Direction: DirectionShort, OraclePriceOffset: -50}
	side, kind := Classify(o, 1)
	if kind != NodeKindFloatingLimit {
		t.Errorf("kind = %v, want FloatingLimit", kind)
	}
	if side != SideAsk {
		t.Errorf("side = %v, want SideAsk", side)
	}
}

func TestClassifyMarketOrder(t *testing.T) {
	t.Parallel()
	o := &Order{OrderType: OrderTypeMarket, Direction: DirectionLong}
	_, kind := Classify(o, 1)
	if kind != NodeKindMarket {
		t.Errorf("kind = %v, want Market", kind)
	}
}

func TestClassifyTriggerInactive(t *testing.T) {
	t.Parallel()
	o := &Order{OrderType: OrderTypeTriggerMarket, TriggerCondition: TriggerConditionAbove, TriggerPrice: 70000}
	side, kind := Classify(o, 1)
	if kind != NodeKindTrigger {
		t.Errorf("kind = %v, want Trigger", kind)
	}
	if side != SideBid {
		t.Errorf("side = %v, want SideBid (Above -> bid)", side)
	}
}

func TestClassifyTriggerFiredBecomesMarket(t *testing.T) {
	t.Parallel()
	o := &Order{OrderType: OrderTypeTriggerMarket, TriggerCondition: TriggerConditionTriggeredAbove, TriggerPrice: 70000, Direction: DirectionLong}
	_, kind := Classify(o, 1)
	if kind != NodeKindMarket {
		t.Errorf("kind = %v, want Market once triggered", kind)
	}
}

func TestClassifyPure(t *testing.T) {
	t.Parallel()
	o := &Order{OrderType: OrderTypeLimit, Direction: DirectionLong, Slot: 100, AuctionDuration: 20}
	side1, kind1 := Classify(o, 150)
	side2, kind2 := Classify(o, 150)
	if side1 != side2 || kind1 != kind2 {
		t.Fatal("Classify is not pure: repeated calls with identical inputs diverged")
	}
}
