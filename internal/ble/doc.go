// Package ble is the Bluetooth LE transport behind gatt.Transport.
//
// Discovery uses tinygo.org/x/bluetooth, which scans through the native
// stack on Linux, macOS and Windows. Connections and GATT traffic go
// through BlueZ over the system D-Bus: the object tree exposes attribute
// handles and characteristic flags, which the selection labels and the
// Rx/Tx classification need.
package ble
