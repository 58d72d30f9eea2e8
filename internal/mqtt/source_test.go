package mqtt

import "testing"

func TestSubscriptions(t *testing.T) {
	subs := subscriptions([]string{"home/#", "sensors/+/temp", ""}, 1)
	if len(subs) != 2 {
		t.Fatalf("subs = %v", subs)
	}
	if subs["home/#"] != 1 || subs["sensors/+/temp"] != 1 {
		t.Fatalf("qos lost: %v", subs)
	}
}

func TestSubscriptionsDefaultsToWildcard(t *testing.T) {
	subs := subscriptions(nil, 0)
	if len(subs) != 1 {
		t.Fatalf("subs = %v", subs)
	}
	if _, ok := subs["#"]; !ok {
		t.Fatalf("missing wildcard fallback: %v", subs)
	}
}
