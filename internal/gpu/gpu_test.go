package gpu

import (
	"errors"
	"testing"
)

var errQuery = errors.New("query failed")

type fakeDevice struct {
	util, temp, fan  uint32
	mem              Memory
	powerMW, limitMW uint32
	txKB, rxKB       uint32

	failUtil, failPower, failLimit, failTX bool
	limitCalls                             int
}

func (f *fakeDevice) Utilization() (uint32, error) {
	if f.failUtil {
		return 0, errQuery
	}
	return f.util, nil
}
func (f *fakeDevice) Memory() (Memory, error)      { return f.mem, nil }
func (f *fakeDevice) Temperature() (uint32, error) { return f.temp, nil }
func (f *fakeDevice) FanSpeed() (uint32, error)    { return f.fan, nil }
func (f *fakeDevice) PowerUsage() (uint32, error) {
	if f.failPower {
		return 0, errQuery
	}
	return f.powerMW, nil
}
func (f *fakeDevice) PowerLimit() (uint32, error) {
	f.limitCalls++
	if f.failLimit {
		return 0, errQuery
	}
	return f.limitMW, nil
}
func (f *fakeDevice) PCIeThroughput(d Direction) (uint32, error) {
	if d == TX {
		if f.failTX {
			return 0, errQuery
		}
		return f.txKB, nil
	}
	return f.rxKB, nil
}

type fakeLibrary struct {
	initErr, deviceErr, driverErr error
	shutdowns                     int
}

func (l *fakeLibrary) Init() error { return l.initErr }
func (l *fakeLibrary) DriverVersion() (string, error) {
	return "550.54.14", l.driverErr
}
func (l *fakeLibrary) Device(int) (Device, string, error) {
	if l.deviceErr != nil {
		return nil, "", l.deviceErr
	}
	return &fakeDevice{}, "NVIDIA GeForce RTX 4090", nil
}
func (l *fakeLibrary) Shutdown() error {
	l.shutdowns++
	return nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name         string
		lib          *fakeLibrary
		wantOK       bool
		wantShutdown int
	}{
		{name: "success", lib: &fakeLibrary{}, wantOK: true},
		{name: "init fails", lib: &fakeLibrary{initErr: errQuery}},
		{name: "no device", lib: &fakeLibrary{deviceErr: errQuery}, wantShutdown: 1},
		{name: "driver version fails", lib: &fakeLibrary{driverErr: errQuery}, wantShutdown: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, id, ok := Detect(tt.lib, nil)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok {
				if dev == nil {
					t.Error("device is nil")
				}
				if id.Name != "NVIDIA GeForce RTX 4090" || id.Driver != "550.54.14" {
					t.Errorf("identity = %+v", id)
				}
			} else if dev != nil {
				t.Error("device returned on failure")
			}
			if tt.lib.shutdowns != tt.wantShutdown {
				t.Errorf("shutdowns = %d, want %d", tt.lib.shutdowns, tt.wantShutdown)
			}
		})
	}
}

func TestDetectNilLibrary(t *testing.T) {
	if _, _, ok := Detect(nil, nil); ok {
		t.Error("nil library detected as available")
	}
}

func TestReadCoreFailure(t *testing.T) {
	_, err := ReadCore(&fakeDevice{failUtil: true})
	if !errors.Is(err, errQuery) {
		t.Errorf("error = %v, want wrapped query error", err)
	}
}

func TestReadExtras(t *testing.T) {
	dev := &fakeDevice{powerMW: 215_400, limitMW: 450_000, txKB: 2048, rxKB: 512}
	ex, err := ReadExtras(dev, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Extras{PowerW: 215.4, PowerLimitW: 450, PCIeTxMB: 2, PCIeRxMB: 0.5}
	if ex != want {
		t.Errorf("extras = %+v, want %+v", ex, want)
	}
}

func TestReadExtrasContainsFailures(t *testing.T) {
	dev := &fakeDevice{limitMW: 450_000, txKB: 2048, rxKB: 1024, failPower: true, failTX: true}
	ex, err := ReadExtras(dev, 0)
	if !errors.Is(err, errQuery) {
		t.Fatalf("error = %v, want joined query errors", err)
	}
	if ex.PowerW != 0 || ex.PCIeTxMB != 0 {
		t.Errorf("failed metrics not zeroed: %+v", ex)
	}
	if ex.PowerLimitW != 450 || ex.PCIeRxMB != 1 {
		t.Errorf("healthy metrics lost: %+v", ex)
	}
}

func TestReadExtrasPowerLimitOverride(t *testing.T) {
	dev := &fakeDevice{failLimit: true}
	ex, err := ReadExtras(dev, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.PowerLimitW != 300 {
		t.Errorf("PowerLimitW = %v, want 300", ex.PowerLimitW)
	}
	if dev.limitCalls != 0 {
		t.Errorf("driver limit queried %d times despite override", dev.limitCalls)
	}
}

func TestRecord(t *testing.T) {
	const gib = 1 << 30
	core := Core{
		Utilization: 87,
		Memory:      Memory{Used: 6 * gib, Total: 24 * gib},
		TempC:       64,
		FanPercent:  41,
	}
	ex := Extras{PowerW: 215.4, PowerLimitW: 450, PCIeTxMB: 12.6, PCIeRxMB: 0.4}

	got := Record(Identity{Name: "RTX", Driver: "550"}, core, ex, []float64{87})
	if got.VRAMPercent != 25 || got.VRAMUsedGB != 6 || got.VRAMTotalGB != 24 {
		t.Errorf("vram = %v%% %v/%v", got.VRAMPercent, got.VRAMUsedGB, got.VRAMTotalGB)
	}
	if got.PowerW != 215 || got.PowerLimitW != 450 {
		t.Errorf("power = %v/%v", got.PowerW, got.PowerLimitW)
	}
	if got.PCIeTxMB != 13 || got.PCIeRxMB != 0 {
		t.Errorf("pcie = %v/%v", got.PCIeTxMB, got.PCIeRxMB)
	}
	if got.Name != "RTX" || got.Driver != "550" || got.Utilization != 87 {
		t.Errorf("identity/utilization = %+v", got)
	}
}

func TestRecordZeroTotalMemory(t *testing.T) {
	got := Record(Identity{}, Core{}, Extras{}, nil)
	if got.VRAMPercent != 0 {
		t.Errorf("VRAMPercent = %v, want 0", got.VRAMPercent)
	}
}
