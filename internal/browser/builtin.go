// internal/browser/builtin.go
package browser

import "proxylens/internal/core/domain"

const (
	pageOrigin   = "https://proxydetect.live"
	pageReferer  = "https://proxydetect.live/"
	intelOrigin  = "https://ipapi.is"
	intelReferer = "https://ipapi.is/"

	contentTypeBeacon = "text/plain;charset=UTF-8"
)

var (
	chromeCiphers = []uint16{
		GREASE,
		0x1301, 0x1302, 0x1303,
		0xc02b, 0xc02f, 0xc02c, 0xc030,
		0xcca9, 0xcca8,
		0xc013, 0xc014,
		0x009c, 0x009d, 0x002f, 0x0035,
	}
	chromeExtensions = []uint16{
		GREASE,
		extServerName, extExtendedMaster, extRenegotiation, extSupportedCurves,
		extSupportedPoints, extSessionTicket, extALPN, extStatusRequest,
		extSignatureAlgorithms, extSCT, extKeyShare, extPSKModes,
		extSupportedVersions, extCompressCert, extALPS, extECH,
		GREASE,
	}
	chromeSignatures = []uint16{0x0403, 0x0804, 0x0401, 0x0503, 0x0805, 0x0501, 0x0806, 0x0601}

	firefoxCiphers = []uint16{
		0x1301, 0x1303, 0x1302,
		0xc02b, 0xc02f, 0xcca9, 0xcca8, 0xc02c, 0xc030,
		0xc00a, 0xc009, 0xc013, 0xc014,
		0x009c, 0x009d, 0x002f, 0x0035,
	}
	firefoxExtensions = []uint16{
		extServerName, extExtendedMaster, extRenegotiation, extSupportedCurves,
		extSupportedPoints, extSessionTicket, extALPN, extStatusRequest,
		extDelegatedCredentials, extKeyShare, extSupportedVersions,
		extSignatureAlgorithms, extPSKModes, extRecordSizeLimit, extCompressCert, extECH,
	}

	safariCiphers = []uint16{
		GREASE,
		0x1301, 0x1302, 0x1303,
		0xc02c, 0xc02b, 0xcca9, 0xc030, 0xc02f, 0xcca8,
		0xc00a, 0xc009, 0xc014, 0xc013,
		0x009d, 0x009c, 0x0035, 0x002f,
		0xc008, 0xc012, 0x000a,
	}
	safariExtensions = []uint16{
		GREASE,
		extServerName, extExtendedMaster, extRenegotiation, extSupportedCurves,
		extSupportedPoints, extALPN, extStatusRequest, extSignatureAlgorithms,
		extSCT, extKeyShare, extPSKModes, extSupportedVersions, extCompressCert,
		extPadding,
		GREASE,
	}
)

const extDelegatedCredentials uint16 = 34

// Code points de curvas.
const (
	curveP256           uint16 = 23
	curveP384           uint16 = 24
	curveP521           uint16 = 25
	curveX25519         uint16 = 29
	curveFFDHE2048      uint16 = 256
	curveFFDHE3072      uint16 = 257
	curveX25519MLKEM768 uint16 = 4588
)

// builtinSpecs retorna specs nuevas de los perfiles incluidos.
func builtinSpecs() []ProfileSpec {
	return []ProfileSpec{
		chromeSpec("143", `"Chromium";v="143", "Not/A)Brand";v="24", "Google Chrome";v="143"`),
		chromeSpec("131", `"Chromium";v="131", "Not/A)Brand";v="24", "Google Chrome";v="131"`),
		firefoxSpec(),
		safariSpec(),
	}
}

func chromeSpec(version, secCHUA string) ProfileSpec {
	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + version + ".0.0.0 Safari/537.36"
	return ProfileSpec{
		Name:      "chrome-" + version,
		Family:    "chrome",
		Version:   version,
		UserAgent: ua,
		TLS: TLSSpec{
			CipherSuites:        chromeCiphers,
			Extensions:          chromeExtensions,
			Curves:              []uint16{GREASE, curveX25519MLKEM768, curveX25519, curveP256, curveP384},
			KeyShareCurves:      []uint16{GREASE, curveX25519MLKEM768, curveX25519},
			SignatureAlgorithms: chromeSignatures,
			Versions:            []uint16{GREASE, 0x0304, 0x0303},
			ALPN:                []string{"h2", "http/1.1"},
			CertCompression:     []uint16{2},
			ShuffleExtensions:   true,
		},
		HTTP2: HTTP2Spec{
			Settings: []H2Setting{
				{ID: 1, Value: 65536},
				{ID: 2, Value: 0},
				{ID: 4, Value: 6291456},
				{ID: 6, Value: 262144},
			},
			ConnectionFlow:    15663105,
			PseudoHeaderOrder: []string{":method", ":authority", ":scheme", ":path"},
			HeaderPriority:    &H2Priority{StreamDep: 0, Exclusive: true, Weight: 255},
		},
		Headers:   chromeHeaders(ua, secCHUA),
		Navigator: chromeNavigator(),
	}
}

func chromeHeaders(ua, secCHUA string) map[domain.RequestContext][]domain.Header {
	const (
		encoding = "gzip, deflate, br, zstd"
		language = "en-US,en;q=0.9"
		platform = `"Windows"`
	)
	clientHints := func(dest, mode, priority, accept string, origin bool, pre ...domain.Header) []domain.Header {
		hs := append([]domain.Header(nil), pre...)
		hs = append(hs,
			domain.Header{Name: "sec-ch-ua-platform", Value: platform},
			domain.Header{Name: "user-agent", Value: ua},
			domain.Header{Name: "sec-ch-ua", Value: secCHUA},
		)
		if dest == "empty" && mode == "no-cors" {
			hs = append(hs, domain.Header{Name: "content-type", Value: contentTypeBeacon})
		}
		hs = append(hs,
			domain.Header{Name: "sec-ch-ua-mobile", Value: "?0"},
			domain.Header{Name: "accept", Value: accept},
		)
		if origin {
			hs = append(hs, domain.Header{Name: "origin", Value: pageOrigin})
		}
		return append(hs,
			domain.Header{Name: "sec-fetch-site", Value: "same-site"},
			domain.Header{Name: "sec-fetch-mode", Value: mode},
			domain.Header{Name: "sec-fetch-dest", Value: dest},
			domain.Header{Name: "referer", Value: pageReferer},
			domain.Header{Name: "accept-encoding", Value: encoding},
			domain.Header{Name: "accept-language", Value: language},
			domain.Header{Name: "priority", Value: priority},
		)
	}

	return map[domain.RequestContext][]domain.Header{
		domain.ContextScript: clientHints("script", "cors", "u=1", "*/*", true),
		domain.ContextImage:  clientHints("image", "no-cors", "i", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8", false),
		domain.ContextBeacon: clientHints("empty", "no-cors", "u=4, i", "*/*", true,
			domain.Header{Name: "content-length"}),
		domain.ContextPoll: clientHints("empty", "cors", "u=1, i", "*/*", true,
			domain.Header{Name: "pragma", Value: "no-cache"},
			domain.Header{Name: "cache-control", Value: "no-cache"}),
		domain.ContextWebSocket: {
			{Name: "Host"},
			{Name: "Connection"},
			{Name: "Pragma", Value: "no-cache"},
			{Name: "Cache-Control", Value: "no-cache"},
			{Name: "User-Agent", Value: ua},
			{Name: "Upgrade"},
			{Name: "Origin", Value: pageOrigin},
			{Name: "Sec-WebSocket-Version"},
			{Name: "Accept-Encoding", Value: encoding},
			{Name: "Accept-Language", Value: language},
			{Name: "Sec-WebSocket-Key"},
			{Name: "Sec-WebSocket-Extensions"},
		},
		domain.ContextIntel: {
			{Name: "sec-ch-ua-platform", Value: platform},
			{Name: "user-agent", Value: ua},
			{Name: "sec-ch-ua", Value: secCHUA},
			{Name: "sec-ch-ua-mobile", Value: "?0"},
			{Name: "accept", Value: "*/*"},
			{Name: "origin", Value: intelOrigin},
			{Name: "sec-fetch-site", Value: "same-site"},
			{Name: "sec-fetch-mode", Value: "cors"},
			{Name: "sec-fetch-dest", Value: "empty"},
			{Name: "referer", Value: intelReferer},
			{Name: "accept-encoding", Value: encoding},
			{Name: "accept-language", Value: language},
			{Name: "priority", Value: "u=1, i"},
		},
	}
}

func chromeNavigator() Navigator {
	return Navigator{
		BooleanFingerprint:  25952189,
		HardwareConcurrency: 16,
		DeviceMemory:        "8",
		Platform:            "Win32",
		Vendor:              "Google Inc.",
		Product:             "Gecko",
		ProductSub:          "20030107",
		PluginsSupport:      true,
		Language:            "en-US",
		Languages:           []string{"en-US", "en"},
		SessionStorage:      true,
		LocalStorage:        true,
		IndexedDB:           true,
		CookieEnabled:       true,
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		Geolocation:         true,
		Vibrate:             true,
		GetBattery:          true,
		WebRTC:              true,
		XPathResult:         true,
	}
}

func firefoxSpec() ProfileSpec {
	const ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0"
	return ProfileSpec{
		Name:      "firefox-133",
		Family:    "firefox",
		Version:   "133",
		UserAgent: ua,
		TLS: TLSSpec{
			CipherSuites:   firefoxCiphers,
			Extensions:     firefoxExtensions,
			Curves:         []uint16{curveX25519MLKEM768, curveX25519, curveP256, curveP384, curveP521, curveFFDHE2048, curveFFDHE3072},
			KeyShareCurves: []uint16{curveX25519MLKEM768, curveX25519, curveP256},
			SignatureAlgorithms: []uint16{
				0x0403, 0x0503, 0x0603, 0x0804, 0x0805, 0x0806,
				0x0401, 0x0501, 0x0601, 0x0203, 0x0201,
			},
			Versions:        []uint16{0x0304, 0x0303},
			ALPN:            []string{"h2", "http/1.1"},
			CertCompression: []uint16{1, 2, 3},
			RecordSizeLimit: 0x4001,
			RawExtensions: []RawExtension{
				{ID: extDelegatedCredentials, Data: []byte{0x00, 0x08, 0x04, 0x03, 0x05, 0x03, 0x06, 0x03, 0x02, 0x03}},
			},
		},
		HTTP2: HTTP2Spec{
			Settings: []H2Setting{
				{ID: 1, Value: 65536},
				{ID: 2, Value: 0},
				{ID: 4, Value: 131072},
				{ID: 5, Value: 16384},
			},
			ConnectionFlow:    12517377,
			PseudoHeaderOrder: []string{":method", ":path", ":authority", ":scheme"},
			HeaderPriority:    &H2Priority{StreamDep: 0, Exclusive: false, Weight: 41},
		},
		Headers:   firefoxHeaders(ua),
		Navigator: firefoxNavigator(),
	}
}

func firefoxHeaders(ua string) map[domain.RequestContext][]domain.Header {
	const (
		encoding = "gzip, deflate, br, zstd"
		language = "en-US,en;q=0.5"
	)
	fetch := func(dest, mode, priority, accept, origin, referer string, extra ...domain.Header) []domain.Header {
		hs := []domain.Header{
			{Name: "User-Agent", Value: ua},
			{Name: "Accept", Value: accept},
			{Name: "Accept-Language", Value: language},
			{Name: "Accept-Encoding", Value: encoding},
		}
		hs = append(hs, extra...)
		if origin != "" {
			hs = append(hs, domain.Header{Name: "Origin", Value: origin})
		}
		hs = append(hs,
			domain.Header{Name: "Referer", Value: referer},
			domain.Header{Name: "Sec-Fetch-Dest", Value: dest},
			domain.Header{Name: "Sec-Fetch-Mode", Value: mode},
			domain.Header{Name: "Sec-Fetch-Site", Value: "same-site"},
		)
		if priority != "" {
			hs = append(hs, domain.Header{Name: "Priority", Value: priority})
		}
		return hs
	}

	return map[domain.RequestContext][]domain.Header{
		domain.ContextScript: fetch("script", "cors", "u=2", "*/*", pageOrigin, pageReferer),
		domain.ContextImage:  fetch("image", "no-cors", "u=5, i", "image/avif,image/webp,image/png,image/svg+xml,image/*;q=0.8,*/*;q=0.5", "", pageReferer),
		domain.ContextBeacon: fetch("empty", "no-cors", "u=6", "*/*", pageOrigin, pageReferer,
			domain.Header{Name: "Content-Type", Value: contentTypeBeacon},
			domain.Header{Name: "Content-Length"}),
		domain.ContextPoll: fetch("empty", "cors", "u=4", "*/*", pageOrigin, pageReferer,
			domain.Header{Name: "Pragma", Value: "no-cache"},
			domain.Header{Name: "Cache-Control", Value: "no-cache"}),
		domain.ContextWebSocket: {
			{Name: "Host"},
			{Name: "User-Agent", Value: ua},
			{Name: "Accept", Value: "*/*"},
			{Name: "Accept-Language", Value: language},
			{Name: "Accept-Encoding", Value: encoding},
			{Name: "Sec-WebSocket-Version"},
			{Name: "Origin", Value: pageOrigin},
			{Name: "Sec-WebSocket-Extensions"},
			{Name: "Sec-WebSocket-Key"},
			{Name: "Connection"},
			{Name: "Sec-Fetch-Dest", Value: "websocket"},
			{Name: "Sec-Fetch-Mode", Value: "websocket"},
			{Name: "Sec-Fetch-Site", Value: "same-site"},
			{Name: "Pragma", Value: "no-cache"},
			{Name: "Cache-Control", Value: "no-cache"},
			{Name: "Upgrade"},
		},
		domain.ContextIntel: fetch("empty", "cors", "", "*/*", intelOrigin, intelReferer),
	}
}

func firefoxNavigator() Navigator {
	n := chromeNavigator()
	n.BooleanFingerprint = 26066385
	n.DeviceMemory = ""
	n.OSCPU = "Windows NT 10.0; Win64; x64"
	n.Vendor = ""
	n.BuildID = "20181001000000"
	n.ProductSub = "20100101"
	n.DoNotTrack = "unspecified"
	return n
}

func safariSpec() ProfileSpec {
	const ua = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Safari/605.1.15"
	return ProfileSpec{
		Name:      "safari-18",
		Family:    "safari",
		Version:   "18",
		UserAgent: ua,
		TLS: TLSSpec{
			CipherSuites:   safariCiphers,
			Extensions:     safariExtensions,
			Curves:         []uint16{GREASE, curveX25519, curveP256, curveP384, curveP521},
			KeyShareCurves: []uint16{GREASE, curveX25519},
			SignatureAlgorithms: []uint16{
				0x0403, 0x0804, 0x0401, 0x0503, 0x0203, 0x0805,
				0x0501, 0x0806, 0x0601, 0x0201,
			},
			Versions:        []uint16{GREASE, 0x0304, 0x0303, 0x0302, 0x0301},
			ALPN:            []string{"h2", "http/1.1"},
			CertCompression: []uint16{1},
		},
		HTTP2: HTTP2Spec{
			Settings: []H2Setting{
				{ID: 2, Value: 0},
				{ID: 3, Value: 100},
				{ID: 4, Value: 2097152},
				{ID: 9, Value: 1},
			},
			ConnectionFlow:    10420225,
			PseudoHeaderOrder: []string{":method", ":scheme", ":path", ":authority"},
			HeaderPriority:    &H2Priority{StreamDep: 0, Exclusive: false, Weight: 254},
		},
		Headers:   safariHeaders(ua),
		Navigator: safariNavigator(),
	}
}

func safariHeaders(ua string) map[domain.RequestContext][]domain.Header {
	const (
		encoding = "gzip, deflate, br"
		language = "en-US,en;q=0.9"
	)
	fetch := func(dest, mode, accept, origin, referer string, extra ...domain.Header) []domain.Header {
		hs := append([]domain.Header(nil), extra...)
		hs = append(hs,
			domain.Header{Name: "Accept", Value: accept},
			domain.Header{Name: "Sec-Fetch-Site", Value: "same-site"},
		)
		if origin != "" {
			hs = append(hs, domain.Header{Name: "Origin", Value: origin})
		}
		return append(hs,
			domain.Header{Name: "Sec-Fetch-Dest", Value: dest},
			domain.Header{Name: "Accept-Language", Value: language},
			domain.Header{Name: "Sec-Fetch-Mode", Value: mode},
			domain.Header{Name: "User-Agent", Value: ua},
			domain.Header{Name: "Referer", Value: referer},
			domain.Header{Name: "Accept-Encoding", Value: encoding},
		)
	}

	return map[domain.RequestContext][]domain.Header{
		domain.ContextScript: fetch("script", "cors", "*/*", pageOrigin, pageReferer),
		domain.ContextImage: fetch("image", "no-cors",
			"image/webp,image/avif,image/jxl,image/heic,image/heic-sequence,video/*;q=0.8,image/png,image/svg+xml,image/*;q=0.8,*/*;q=0.5",
			"", pageReferer),
		domain.ContextBeacon: fetch("empty", "no-cors", "*/*", pageOrigin, pageReferer,
			domain.Header{Name: "Content-Type", Value: contentTypeBeacon},
			domain.Header{Name: "Content-Length"}),
		domain.ContextPoll: fetch("empty", "cors", "*/*", pageOrigin, pageReferer,
			domain.Header{Name: "Pragma", Value: "no-cache"},
			domain.Header{Name: "Cache-Control", Value: "no-cache"}),
		domain.ContextWebSocket: {
			{Name: "Upgrade"},
			{Name: "Connection"},
			{Name: "Host"},
			{Name: "Origin", Value: pageOrigin},
			{Name: "Pragma", Value: "no-cache"},
			{Name: "Cache-Control", Value: "no-cache"},
			{Name: "Sec-WebSocket-Extensions"},
			{Name: "Sec-WebSocket-Key"},
			{Name: "Sec-WebSocket-Version"},
			{Name: "Accept-Language", Value: language},
			{Name: "User-Agent", Value: ua},
			{Name: "Accept-Encoding", Value: encoding},
		},
		domain.ContextIntel: fetch("empty", "cors", "*/*", intelOrigin, intelReferer),
	}
}

func safariNavigator() Navigator {
	n := chromeNavigator()
	n.BooleanFingerprint = 25969049
	n.HardwareConcurrency = 8
	n.DeviceMemory = ""
	n.Platform = "MacIntel"
	n.Vendor = "Apple Computer, Inc."
	n.OpenDatabase = true
	n.Vibrate = false
	n.GetBattery = false
	return n
}
