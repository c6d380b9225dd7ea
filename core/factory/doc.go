// Package factory instantiates pluggable modules from configuration. A
// module is a type name plus a map of raw settings; the factory registered
// for the type decodes the settings and builds the implementation. Metrics
// sinks and charger gateways are created this way.
//
//	reg := factory.NewRegistry[coremetrics.MetricsSink]()
//	reg.Register("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInfluxSink(c.URL)
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "influx", Conf: map[string]any{"url": "http://influx:8086"}})
package factory
