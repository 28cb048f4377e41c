// Package rtcan is a thin transport over Linux SocketCAN raw sockets.
//
// A Bus is opened on a named interface, optionally in CAN FD mode, and moves
// single frames in struct canfd_frame layout. Writes never block: a full
// transmit queue drops the frame and reports zero bytes written.
package rtcan
