// Package debugit is the logging dispatcher.
//
// A [Logger] filters each call against a minimum level, builds one
// immutable [log.Event] and hands it to every registered sink. Each sink
// has its own bounded queue and drain goroutine, so a slow, failing or
// panicking sink never blocks the caller or affects its siblings. Sink
// failures go to the diagnostic reporter, not back to the application.
//
// When debug mode is on and a relay configuration is supplied, [New] also
// creates the network relay transport (server or client role, see package
// relay) and registers it as one more sink.
//
//	logger, err := debugit.New(
//		[]log.Sink{console.New(os.Stdout)},
//		debugit.Settings{MinLevel: log.LevelInfo, DebugMode: true},
//		&relay.Config{Mode: relay.ModeServer, Port: 3001},
//	)
//	if err != nil {
//		return err
//	}
//	defer logger.Close(context.Background())
//
//	logger.Info("listening", debugit.Meta{"port": 8080})
package debugit
