package config

const ObserverConfigTemplate = `db_host = "{{ .DbHost }}"
db_port = {{ .DbPort }}
db_username = "{{ .DbUsername }}"
db_schema = "{{ .DbSchema }}"
in_memory = {{ .InMemory }}

server_port = {{ .ServerPort }}
oracle_url = "{{ .OracleUrl }}"
tx_handling_enabled = {{ .TxHandlingEnabled }}
dev_endpoints_enabled = {{ .DevEndpointsEnabled }}
maturation_shift = {{ .MaturationShift }}
precision_shift = {{ .PrecisionShift }}
reconcile_interval = {{ .ReconcileInterval }}
suppression_window = {{ .SuppressionWindow }}

[chains]{{ range $k, $v := .Chains }}
	[chains.{{ $k }}]
	type = "{{ $v.Type }}"
	enabled = {{ $v.Enabled }}
	contract_address = "{{ $v.ContractAddress }}"
	rpcs = [{{ range $i, $r := $v.Rpcs }}{{ if $i }}, {{ end }}"{{ $r }}"{{ end }}]
	api_url = "{{ $v.ApiUrl }}"
	socket_url = "{{ $v.SocketUrl }}"
	signer_url = "{{ $v.SignerUrl }}"
	sender_address = "{{ $v.SenderAddress }}"
	registration_nft = "{{ $v.RegistrationNft }}"
	event_source_version = "{{ $v.EventSourceVersion }}"
{{ end }}
`
