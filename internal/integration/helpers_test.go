//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("alarm-dashboard-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// writeSources writes a small alarm, brigade, and topology data set and
// returns the directory holding it.
func writeSources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"alarms.csv": "alarmId;districtNo;district;alarmType;alarmLevel;brigadeCount;latitude;longitude;alarmStart;alarmEnd\n" +
			"1;10;Linz-Land;Brand;2;2;48.17;16.38;03.01.2020 08:00;03.01.2020 09:30\n" +
			"2;10;Linz-Land;Technisch;1;1;48.17;16.38;03.01.2020 11:00;03.01.2020 11:30\n" +
			"3;2;Wels-Land;Brand;1;1;48.21;16.40;09.01.2020 21:15;09.01.2020 22:15\n" +
			"4;11;Steyr-Land;Brand;1;1;48.17;16.42;14.02.2020 06:00;14.02.2020 07:00\n",
		"brigades.csv": "brigadeId;name;callStart;callEnd;alarmNr\n" +
			"100;BF Linz-Land;03.01.2020 08:05;03.01.2020 09:20;1\n" +
			"101;BF Linz-Land;03.01.2020 11:05;03.01.2020 11:25;2\n" +
			"102;FF Wels-Land;09.01.2020 21:20;09.01.2020 22:00;3\n" +
			"103;FF Steyr-Land;14.02.2020 06:05;14.02.2020 06:55;4\n",
		"topo.json": `{"type":"Topology","objects":{"bezirke":{"type":"GeometryCollection","geometries":[
			{"properties":{"name":"Wels-Land"}},
			{"properties":{"name":"Linz-Land"}},
			{"properties":{"name":"Steyr-Land"}}]}}}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}
