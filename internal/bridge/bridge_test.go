package bridge

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/clusters"
)

type bridgeFixture struct {
	hub       *homeassistant.Hub
	bridge    *Bridge
	publisher *fakePublisher
	history   *SQLiteAttributeHistoryRepository
	repo      *SQLiteEndpointRepository
}

func newBridgeFixture(t *testing.T, filter config.FilterConfig, seed ...homeassistant.Snapshot) *bridgeFixture {
	t.Helper()

	reg := behavior.NewRegistry()
	if err := clusters.Register(reg, clusters.DeviceInfo{VendorName: "Gray Logic", ProductName: "Matter Hub"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	hub := homeassistant.NewHub()
	for _, s := range seed {
		hub.Publish(s)
	}

	db := openTestDB(t)
	f := &bridgeFixture{
		hub:       hub,
		publisher: newFakePublisher(),
		history:   NewSQLiteAttributeHistoryRepository(db.DB),
		repo:      NewSQLiteEndpointRepository(db.DB),
	}
	reporter := NewReporter(ReporterConfig{Publisher: f.publisher, History: f.history})

	b, err := New(Config{
		Hub:              hub,
		Registry:         reg,
		Filter:           NewFilter(filter),
		Endpoints:        f.repo,
		Reporter:         reporter,
		History:          f.history,
		HistoryRetention: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.bridge = b

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		reporter.Run(ctx)
	}()
	runErr := make(chan error, 1)
	go func() { runErr <- b.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		if err := <-runErr; err != nil {
			t.Errorf("Run() error = %v", err)
		}
		<-done
	})

	eventually(t, "bridge running", func() bool { return b.Status().Running })
	return f
}

func light(id, state string, brightness float64) homeassistant.Snapshot {
	attrs := map[string]any{"friendly_name": "Kitchen Light", "supported_color_modes": []any{"brightness"}}
	if brightness > 0 {
		attrs["brightness"] = brightness
	}
	return homeassistant.Snapshot{EntityID: id, State: state, Attributes: attrs}
}

func (f *bridgeFixture) endpointFor(t *testing.T, entityID string) EndpointInfo {
	t.Helper()
	var info EndpointInfo
	eventually(t, "endpoint for "+entityID, func() bool {
		var ok bool
		info, ok = f.bridge.EndpointForEntity(entityID)
		return ok
	})
	return info
}

func clusterAttr(info EndpointInfo, capability, key string) (any, bool) {
	for _, c := range info.Clusters {
		if c.Name == capability {
			v, ok := c.Attributes[key]
			return v, ok
		}
	}
	return nil, false
}

func TestBridge_BridgesSeededEntities(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{},
		light("light.kitchen", "on", 128),
		homeassistant.Snapshot{EntityID: "switch.kettle", State: "off"},
		homeassistant.Snapshot{EntityID: "media_player.tv", State: "playing"},
	)

	kitchen := f.endpointFor(t, "light.kitchen")
	kettle := f.endpointFor(t, "switch.kettle")
	if kitchen.Number == kettle.Number {
		t.Fatalf("endpoints share number %d", kitchen.Number)
	}

	if v, _ := clusterAttr(kitchen, clusters.LevelControl, "currentLevel"); v != uint8(127) {
		t.Errorf("currentLevel = %v, want 127", v)
	}
	if v, _ := clusterAttr(kitchen, clusters.BasicInformation, "nodeLabel"); v != "Kitchen Light" {
		t.Errorf("nodeLabel = %v", v)
	}

	eventually(t, "onOff report", func() bool {
		v, ok := f.publisher.latest(kitchen.Number, "on_off", "onOff")
		return ok && v == true
	})
	eventually(t, "availability", func() bool {
		online, ok := f.publisher.online(kettle.Number)
		return ok && online
	})

	if reason, ok := f.bridge.Skipped("media_player.tv"); !ok || reason != SkipUnsupported {
		t.Errorf("media_player skipped = %q/%v, want unsupported", reason, ok)
	}
	if got := len(f.bridge.Endpoints()); got != 2 {
		t.Errorf("Endpoints() = %d, want 2", got)
	}
	if _, ok := f.bridge.Endpoint(kitchen.Number); !ok {
		t.Error("Endpoint(number) not found")
	}
}

func TestBridge_FollowsUpdates(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{}, light("light.kitchen", "off", 0))
	ep := f.endpointFor(t, "light.kitchen")

	f.hub.Publish(light("light.kitchen", "on", 255))

	eventually(t, "level report", func() bool {
		v, ok := f.publisher.latest(ep.Number, "level_control", "currentLevel")
		return ok && v == uint8(254)
	})

	eventually(t, "history", func() bool {
		recs, err := f.history.List(context.Background(), ep.Number, 0)
		return err == nil && len(recs) > 0
	})
}

func TestBridge_AddAndRemove(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{})

	f.hub.Publish(homeassistant.Snapshot{EntityID: "binary_sensor.front_door", State: "on",
		Attributes: map[string]any{"device_class": "door"}})
	ep := f.endpointFor(t, "binary_sensor.front_door")

	if v, _ := clusterAttr(ep, clusters.BooleanState, "stateValue"); v != false {
		t.Errorf("stateValue = %v, want false (open door)", v)
	}

	f.hub.Remove("binary_sensor.front_door")
	eventually(t, "endpoint removal", func() bool {
		_, ok := f.bridge.EndpointForEntity("binary_sensor.front_door")
		return !ok
	})
	eventually(t, "offline availability", func() bool {
		online, ok := f.publisher.online(ep.Number)
		return ok && !online
	})

	// The entity comes back with the same endpoint number.
	f.hub.Publish(homeassistant.Snapshot{EntityID: "binary_sensor.front_door", State: "off",
		Attributes: map[string]any{"device_class": "door"}})
	back := f.endpointFor(t, "binary_sensor.front_door")
	if back.Number != ep.Number {
		t.Errorf("number after re-add = %d, want %d", back.Number, ep.Number)
	}
}

func TestBridge_Filter(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{IncludeDomains: []string{"switch"}},
		homeassistant.Snapshot{EntityID: "switch.kettle", State: "on"},
		light("light.kitchen", "on", 10),
	)

	f.endpointFor(t, "switch.kettle")
	eventually(t, "light filtered", func() bool {
		reason, ok := f.bridge.Skipped("light.kitchen")
		return ok && reason == SkipFiltered
	})
}

// TestBridge_RetriesSkippedEntityOnUpdate covers an entity whose first
// snapshot lacks the attributes needed to pick capabilities.
func TestBridge_RetriesSkippedEntityOnUpdate(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{})

	f.hub.Publish(homeassistant.Snapshot{EntityID: "sensor.kitchen", State: "unavailable"})
	eventually(t, "sensor skipped as unsupported", func() bool {
		reason, ok := f.bridge.Skipped("sensor.kitchen")
		return ok && reason == SkipUnsupported
	})

	f.hub.Publish(homeassistant.Snapshot{EntityID: "sensor.kitchen", State: "21.5",
		Attributes: map[string]any{"device_class": "temperature", "unit_of_measurement": "°C"}})
	ep := f.endpointFor(t, "sensor.kitchen")

	if !slices.Contains(ep.Capabilities, clusters.TemperatureMeasurement) {
		t.Errorf("capabilities = %v, want %s", ep.Capabilities, clusters.TemperatureMeasurement)
	}
	if _, ok := f.bridge.Skipped("sensor.kitchen"); ok {
		t.Error("bridged entity still listed as skipped")
	}
	eventually(t, "temperature report", func() bool {
		v, ok := f.publisher.latest(ep.Number, clusters.TemperatureMeasurement, "measuredValue")
		return ok && v == int16(2150)
	})
}

func TestBridge_FilteredEntityIgnoresUpdates(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{IncludeDomains: []string{"switch"}},
		homeassistant.Snapshot{EntityID: "switch.kettle", State: "on"},
		light("light.kitchen", "on", 10),
	)
	f.endpointFor(t, "switch.kettle")
	eventually(t, "light filtered", func() bool {
		reason, ok := f.bridge.Skipped("light.kitchen")
		return ok && reason == SkipFiltered
	})

	f.hub.Publish(light("light.kitchen", "on", 200))
	f.hub.Publish(homeassistant.Snapshot{EntityID: "switch.kettle", State: "off"})
	eventually(t, "kettle update", func() bool {
		info, ok := f.bridge.EndpointForEntity("switch.kettle")
		if !ok {
			return false
		}
		v, _ := clusterAttr(info, clusters.OnOff, "onOff")
		return v == false
	})

	if _, ok := f.bridge.EndpointForEntity("light.kitchen"); ok {
		t.Error("filtered entity was bridged after an update")
	}
	if reason, _ := f.bridge.Skipped("light.kitchen"); reason != SkipFiltered {
		t.Errorf("Skipped() = %q, want %q", reason, SkipFiltered)
	}
}

func TestBridge_Republish(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{}, homeassistant.Snapshot{EntityID: "switch.kettle", State: "on"})
	ep := f.endpointFor(t, "switch.kettle")
	eventually(t, "initial report", func() bool {
		_, ok := f.publisher.latest(ep.Number, "on_off", "onOff")
		return ok
	})

	before := f.publisher.count()
	if n := f.bridge.Republish(); n != 1 {
		t.Errorf("Republish() = %d, want 1", n)
	}
	eventually(t, "republished attributes", func() bool {
		return f.publisher.count() > before
	})
}

// TestBridge_RepublishAfterUpdate checks a replay never leaves an older
// value as the last one published.
func TestBridge_RepublishAfterUpdate(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{}, homeassistant.Snapshot{EntityID: "switch.kettle", State: "off"})
	ep := f.endpointFor(t, "switch.kettle")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 20 {
			f.bridge.Republish()
		}
	}()
	f.hub.Publish(homeassistant.Snapshot{EntityID: "switch.kettle", State: "on"})
	<-done

	eventually(t, "final onOff", func() bool {
		v, ok := f.publisher.latest(ep.Number, clusters.OnOff, "onOff")
		return ok && v == true
	})
	// Let the reporter drain anything still queued, then check again.
	time.Sleep(50 * time.Millisecond)
	if v, _ := f.publisher.latest(ep.Number, clusters.OnOff, "onOff"); v != true {
		t.Errorf("last published onOff = %v, want true", v)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	if !errors.Is(err, matter.ErrConfiguration) {
		t.Errorf("New() error = %v, want ErrConfiguration", err)
	}
}

func TestBridge_RunTwice(t *testing.T) {
	f := newBridgeFixture(t, config.FilterConfig{})
	if err := f.bridge.Run(context.Background()); err == nil {
		t.Error("second Run() should fail while the first is active")
	}
}
