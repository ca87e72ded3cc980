package sqlinline

const QEnsureContentJobs = `--sql 3a8fb83b-a4a3-4f2a-913b-8de6ea5ba85b
create table if not exists content_jobs (
  id uuid primary key,
  kind text not null,
  status text not null,
  topic text not null default '',
  output_dir text not null,
  result_location text,
  error text,
  request jsonb not null default '{}'::jsonb,
  created_at timestamptz not null,
  started_at timestamptz,
  finished_at timestamptz
);
create index if not exists content_jobs_created_at_idx on content_jobs (created_at);
`

const QUpsertContentJob = `--sql 6eae8dc6-31c0-47cc-b218-6d1be3267419
insert into content_jobs(
  id,
  kind,
  status,
  topic,
  output_dir,
  result_location,
  error,
  request,
  created_at,
  started_at,
  finished_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  nullif($6::text, ''),
  nullif($7::text, ''),
  coalesce($8::jsonb, '{}'::jsonb),
  $9::timestamptz,
  $10::timestamptz,
  $11::timestamptz
)
on conflict (id) do update set
  status = excluded.status,
  result_location = excluded.result_location,
  error = excluded.error,
  started_at = excluded.started_at,
  finished_at = excluded.finished_at;
`

const QDeleteContentJob = `--sql 48c4ee0b-dd3a-4f01-b987-4fa6daae6182
delete from content_jobs
where id = $1::uuid;
`

const QListContentJobs = `--sql 5b529071-b38f-4fa4-8ae7-af70e41790c8
select
  id::text,
  kind,
  status,
  topic,
  output_dir,
  coalesce(result_location, ''),
  coalesce(error, ''),
  request,
  created_at,
  started_at,
  finished_at
from content_jobs
order by created_at asc;
`
