// wyzesensectl drives a Wyze Sense USB dongle: enumerate paired sensors,
// pair or unpair one, and stream live events.
package main

func main() {
	Execute()
}
