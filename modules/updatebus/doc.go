// Package updatebus provides non-blocking fan-out of application state
// changes to observers (WebSocket clients, the MQTT emitter).
//
// Publishers are the recognition session, the translator, the camera manager
// and the training recorder. A slow observer never delays them:
//
//	"Drop updates, never queue."
//
// # Policies
//
// DropNew subscribers pass a buffered channel; when it is full the update is
// dropped and counted. DropOld subscribers get a Receiver that always holds
// the newest update and blocks in Receive until a newer one arrives.
//
// # Basic Usage
//
//	b := updatebus.New()
//	defer b.Close()
//
//	ch := make(chan updatebus.Update, 16)
//	b.Subscribe("ws-client-1", ch)
//
//	b.Publish(updatebus.Update{Kind: updatebus.KindRecognition, Payload: snapshot})
package updatebus
