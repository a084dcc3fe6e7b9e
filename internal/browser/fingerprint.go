// internal/browser/fingerprint.go
package browser

import (
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Navigator agrupa las propiedades de navigator/window que ve el script de la
// página. El motor las resume en el campo fp de la telemetría.
type Navigator struct {
	BooleanFingerprint  int64    `yaml:"boolean_fingerprint"`
	HardwareConcurrency int      `yaml:"hardware_concurrency"`
	DeviceMemory        string   `yaml:"device_memory"`
	Platform            string   `yaml:"platform"`
	OSCPU               string   `yaml:"oscpu"`
	CPUClass            string   `yaml:"cpu_class"`
	Vendor              string   `yaml:"vendor"`
	BuildID             string   `yaml:"build_id"`
	Product             string   `yaml:"product"`
	ProductSub          string   `yaml:"product_sub"`
	PluginsSupport      bool     `yaml:"plugins_support"`
	MaxTouchPoints      int      `yaml:"max_touch_points"`
	Language            string   `yaml:"language"`
	Languages           []string `yaml:"languages"`
	SessionStorage      bool     `yaml:"session_storage"`
	LocalStorage        bool     `yaml:"local_storage"`
	IndexedDB           bool     `yaml:"indexed_db"`
	OpenDatabase        bool     `yaml:"open_database"`
	CookieEnabled       bool     `yaml:"cookie_enabled"`
	DoNotTrack          string   `yaml:"do_not_track"`
	SaysWho             string   `yaml:"sayswho"`
	LoadPurpose         string   `yaml:"load_purpose"`
	Webdriver           bool     `yaml:"webdriver"`
	ScreenWidth         int      `yaml:"screen_width"`
	ScreenHeight        int      `yaml:"screen_height"`
	Geolocation         bool     `yaml:"geolocation"`
	Vibrate             bool     `yaml:"vibrate"`
	GetBattery          bool     `yaml:"get_battery"`
	WebRTC              bool     `yaml:"webrtc"`
	Phantom             bool     `yaml:"phantom"`
	WindowWebdriver     bool     `yaml:"window_webdriver"`
	DomAutomation       bool     `yaml:"dom_automation"`
	Automation          bool     `yaml:"automation"`
	WD1                 bool     `yaml:"wd1"`
	XPathResult         bool     `yaml:"xpath_result"`
	WD2                 bool     `yaml:"wd2"`
	Selenium            bool     `yaml:"selenium"`
}

// String serializa las propiedades como la secuencia key:value; que hashea el
// script de la página. El orden de las claves es fijo.
func (n Navigator) String() string {
	var b strings.Builder
	kv := func(k, v string) {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte(';')
	}
	bs := strconv.FormatBool

	kv("booleanFingerprint", strconv.FormatInt(n.BooleanFingerprint, 10))
	kv("hardwareConcurrency", strconv.Itoa(n.HardwareConcurrency))
	kv("deviceMemory", n.DeviceMemory)
	kv("platform", n.Platform)
	kv("oscpu", n.OSCPU)
	kv("cpuClass", n.CPUClass)
	kv("vendor", n.Vendor)
	kv("buildID", n.BuildID)
	kv("product", n.Product)
	kv("productSub", n.ProductSub)
	kv("pluginsSupport", bs(n.PluginsSupport))
	kv("maxTouchPoints", strconv.Itoa(n.MaxTouchPoints))
	kv("language", n.Language)
	kv("languages", strings.Join(n.Languages, ","))
	kv("sessionStorage", bs(n.SessionStorage))
	kv("localStorage", bs(n.LocalStorage))
	kv("indexedDB", bs(n.IndexedDB))
	kv("openDatabase", bs(n.OpenDatabase))
	kv("navigatorCookieEnabled", bs(n.CookieEnabled))
	kv("doNotTrack", n.DoNotTrack)
	kv("sayswho", n.SaysWho)
	kv("loadPurpose", n.LoadPurpose)
	kv("webdriver", bs(n.Webdriver))
	kv("dimensions", strconv.Itoa(n.ScreenWidth)+","+strconv.Itoa(n.ScreenHeight))
	kv("geolocation", bs(n.Geolocation))
	kv("vibrate", bs(n.Vibrate))
	kv("getBattery", bs(n.GetBattery))
	kv("webrtcKey", bs(n.WebRTC))
	kv("_phantom", bs(n.Phantom))
	kv("webdriver", bs(n.WindowWebdriver))
	kv("domAutomation", bs(n.DomAutomation))
	kv("auto", bs(n.Automation))
	kv("wd1", bs(n.WD1))
	kv("XPathResult", bs(n.XPathResult))
	kv("wd2", bs(n.WD2))
	kv("selenium", bs(n.Selenium))
	return b.String()
}

// Fingerprint es MurmurHash3 x86_32 (seed 0) sobre el string de navigator.
func (n Navigator) Fingerprint() uint32 {
	return murmur3.Sum32([]byte(n.String()))
}

// Fingerprint retorna el hash de navigator del perfil.
func (p *Profile) Fingerprint() uint32 {
	return p.spec.Navigator.Fingerprint()
}

// Navigator retorna las propiedades de navigator del perfil.
func (p *Profile) Navigator() Navigator {
	n := p.spec.Navigator
	n.Languages = append([]string(nil), n.Languages...)
	return n
}
